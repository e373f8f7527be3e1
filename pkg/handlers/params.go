package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseOrgID extracts the numeric organization ID from the request path.
// Writes a 400 response and returns ok=false on failure.
func ParseOrgID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	raw := r.PathValue("orgID")
	orgID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orgID <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_org_id", "Invalid organization ID"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return orgID, true
}

// UserID returns the caller identity set by the fronting auth layer, or
// "anonymous" when absent.
func UserID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}
