package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/services"
)

// SchemaPromptResponse contains the schema formatted for LLM context.
type SchemaPromptResponse struct {
	Prompt string `json:"prompt"`
}

// SchemaHandler handles schema introspection HTTP requests.
type SchemaHandler struct {
	schemaService services.SchemaService
	adapters      dialect.AdapterFactory
	logger        *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(schemaService services.SchemaService, adapters dialect.AdapterFactory, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{
		schemaService: schemaService,
		adapters:      adapters,
		logger:        logger,
	}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/orgs/{orgID}/schema", h.GetSchema)
	mux.HandleFunc("GET /api/orgs/{orgID}/schema/prompt", h.GetSchemaPrompt)
	mux.HandleFunc("GET /api/dialects", h.ListDialects)
}

// GetSchema handles GET /api/orgs/{orgID}/schema.
// Introspects the org's external database and returns the normalized schema.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}

	schema, err := h.schemaService.Introspect(r.Context(), orgID)
	if err != nil {
		h.writeSchemaError(w, orgID, err)
		return
	}

	response := ApiResponse{Success: true, Data: schema}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetSchemaPrompt handles GET /api/orgs/{orgID}/schema/prompt.
// Returns the searchable schema rendered for LLM context.
func (h *SchemaHandler) GetSchemaPrompt(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}

	schema, err := h.schemaService.Introspect(r.Context(), orgID)
	if err != nil {
		h.writeSchemaError(w, orgID, err)
		return
	}

	data := SchemaPromptResponse{Prompt: services.FormatForPrompt(schema.Searchable())}
	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListDialects handles GET /api/dialects.
// Returns every registered dialect adapter.
func (h *SchemaHandler) ListDialects(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{Success: true, Data: h.adapters.ListDialects()}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *SchemaHandler) writeSchemaError(w http.ResponseWriter, orgID int64, err error) {
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
		h.logger.Error("Failed to introspect schema",
			zap.Int64("org_id", orgID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "introspect_failed", "Failed to introspect schema"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}
