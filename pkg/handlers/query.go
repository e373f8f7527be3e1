package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
	"github.com/querypilot/querypilot-engine/pkg/services"
)

// AskRequest is the body for POST /api/orgs/{orgID}/query.
type AskRequest struct {
	Question string `json:"question"`
}

// ValidateRequest is the body for POST /api/orgs/{orgID}/query/validate.
type ValidateRequest struct {
	SQL string `json:"sql"`
}

// QueryHandler handles natural-language query HTTP requests.
type QueryHandler struct {
	queryService services.QueryService
	validator    services.ValidatorService
	queries      repositories.QueryRepository
	logger       *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(
	queryService services.QueryService,
	validator services.ValidatorService,
	queries repositories.QueryRepository,
	logger *zap.Logger,
) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		validator:    validator,
		queries:      queries,
		logger:       logger,
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orgs/{orgID}/query", h.Ask)
	mux.HandleFunc("POST /api/orgs/{orgID}/query/validate", h.Validate)
	mux.HandleFunc("GET /api/orgs/{orgID}/queries", h.ListRecent)
}

// Ask handles POST /api/orgs/{orgID}/query.
// Runs the full pipeline: introspect, generate, validate, execute, track.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "A non-empty question is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.queryService.Ask(r.Context(), orgID, UserID(r), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrOrgNotConfigured):
			if err := ErrorResponse(w, http.StatusConflict, "org_not_configured", "Organization has no database connection configured"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		case result != nil:
			// Pipeline completed but the statement was rejected or failed;
			// return the structured result so the caller can retry with the
			// database's message.
			response := ApiResponse{Success: false, Data: result, Message: err.Error()}
			if err := WriteJSON(w, http.StatusUnprocessableEntity, response); err != nil {
				h.logger.Error("Failed to write response", zap.Error(err))
			}
			return
		default:
			h.logger.Error("Query pipeline failed",
				zap.Int64("org_id", orgID),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "query_failed", "Failed to answer question"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	response := ApiResponse{Success: true, Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Validate handles POST /api/orgs/{orgID}/query/validate.
// Dry-runs a statement without executing it.
func (h *QueryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SQL == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "A non-empty sql field is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.validator.Validate(r.Context(), req.SQL, &orgID)
	if err != nil {
		h.logger.Error("Validation failed",
			zap.Int64("org_id", orgID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "validate_failed", "Failed to validate statement"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListRecent handles GET /api/orgs/{orgID}/queries.
// Returns the newest execution records for the org.
func (h *QueryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}

	records, err := h.queries.ListRecent(r.Context(), orgID, 0)
	if err != nil {
		h.logger.Error("Failed to list executions",
			zap.Int64("org_id", orgID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_queries_failed", "Failed to list query history"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: records}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
