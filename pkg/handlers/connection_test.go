package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

func newConnectionMux(t *testing.T, svc *mockConnectionService) *http.ServeMux {
	t.Helper()
	h := NewConnectionHandler(svc, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestConnectionHandler_TestConnection(t *testing.T) {
	mux := newConnectionMux(t, &mockConnectionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/orgs/42/connection/test", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestConnectionHandler_TestConnectionUnreachable(t *testing.T) {
	mux := newConnectionMux(t, &mockConnectionService{testErr: errors.New("dial tcp: connection refused")})

	req := httptest.NewRequest(http.MethodPost, "/api/orgs/42/connection/test", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection_failed")
}

func TestConnectionHandler_TestConnectionNotConfigured(t *testing.T) {
	mux := newConnectionMux(t, &mockConnectionService{testErr: apperrors.ErrOrgNotConfigured})

	req := httptest.NewRequest(http.MethodPost, "/api/orgs/42/connection/test", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConnectionHandler_SaveConnection(t *testing.T) {
	svc := &mockConnectionService{}
	mux := newConnectionMux(t, svc)

	body := `{"dialect":"postgres","credentials":{"host":"db.internal","port":5432}}`
	req := httptest.NewRequest(http.MethodPut, "/api/orgs/42/connection", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DialectPostgres, svc.savedDialect)
	assert.Equal(t, "db.internal", svc.savedBundle["host"])
}

func TestConnectionHandler_SaveConnectionMissingCredentials(t *testing.T) {
	mux := newConnectionMux(t, &mockConnectionService{})

	req := httptest.NewRequest(http.MethodPut, "/api/orgs/42/connection", strings.NewReader(`{"dialect":"postgres"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectionHandler_SaveConnectionRejectedCredentials(t *testing.T) {
	mux := newConnectionMux(t, &mockConnectionService{saveErr: errors.New("password authentication failed")})

	body := `{"credentials":{"host":"db.internal"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/orgs/42/connection", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "credentials_rejected")
}
