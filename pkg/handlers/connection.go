package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/services"
)

// SaveConnectionRequest is the body for PUT /api/orgs/{orgID}/connection.
type SaveConnectionRequest struct {
	Dialect     string         `json:"dialect,omitempty"`
	Credentials map[string]any `json:"credentials"`
}

// ConnectionHandler handles external database connection HTTP requests.
type ConnectionHandler struct {
	connections services.ConnectionService
	logger      *zap.Logger
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(connections services.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, logger: logger}
}

// RegisterRoutes registers the connection handler's routes on the given mux.
func (h *ConnectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orgs/{orgID}/connection/test", h.TestConnection)
	mux.HandleFunc("PUT /api/orgs/{orgID}/connection", h.SaveConnection)
}

// TestConnection handles POST /api/orgs/{orgID}/connection/test.
// Verifies the stored credentials against the live database.
func (h *ConnectionHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.connections.TestConnection(r.Context(), orgID); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "org_not_found", "Organization not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrOrgNotConfigured):
			if err := ErrorResponse(w, http.StatusConflict, "org_not_configured", "Organization has no database connection configured"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Warn("Connection test failed",
				zap.Int64("org_id", orgID),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusBadGateway, "connection_failed", "Could not connect to the organization's database"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	response := ApiResponse{Success: true}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SaveConnection handles PUT /api/orgs/{orgID}/connection.
// Verifies the submitted credentials connect, then stores them.
func (h *ConnectionHandler) SaveConnection(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}

	var req SaveConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Credentials) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "A credentials object is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	d, _ := models.ParseDialect(req.Dialect)
	if err := h.connections.SaveCredentials(r.Context(), orgID, d, req.Credentials); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "org_not_found", "Organization not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Warn("Failed to save connection",
				zap.Int64("org_id", orgID),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusBadRequest, "credentials_rejected", "Credentials failed verification against the database"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	response := ApiResponse{Success: true}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
