package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/applied/internal/domain"
	"github.com/pscheid92/applied/internal/platform/correlation"
	apperrors "github.com/pscheid92/applied/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationMiddleware_AssignsID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := correlationMiddleware(func(c echo.Context) error {
		seen, _ = correlation.ID(c.Request().Context())
		return nil
	})(c)

	require.NoError(t, err)
	assert.Len(t, seen, 16)
	assert.Equal(t, seen, rec.Header().Get(correlationHeader))
}

func TestCorrelationMiddleware_ReusesIncomingID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(correlationHeader, "client-req-7")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := correlationMiddleware(func(c echo.Context) error {
		seen, _ = correlation.ID(c.Request().Context())
		return nil
	})(c)

	require.NoError(t, err)
	assert.Equal(t, "client-req-7", seen)
	assert.Equal(t, "client-req-7", rec.Header().Get(correlationHeader))
}

func TestCorrelationMiddleware_RejectsUnsafeID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(correlationHeader, "bad id\nwith newline")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := correlationMiddleware(func(echo.Context) error { return nil })(c)

	require.NoError(t, err)
	assert.NotEqual(t, "bad id\nwith newline", rec.Header().Get(correlationHeader))
	assert.Len(t, rec.Header().Get(correlationHeader), 16)
}

func TestTranslateDomainError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  apperrors.ErrorType
		wantMsg   string
		wantField any
	}{
		{
			name:      "validation with field",
			err:       domain.NewValidationError("company_name", "company_name is required"),
			wantType:  apperrors.TypeValidation,
			wantMsg:   "company_name: company_name is required",
			wantField: "company_name",
		},
		{
			name:     "validation without field",
			err:      domain.NewValidationError("", "no fields to update"),
			wantType: apperrors.TypeValidation,
			wantMsg:  "no fields to update",
		},
		{
			name:     "not found",
			err:      fmt.Errorf("get: %w", domain.ErrApplicationNotFound),
			wantType: apperrors.TypeNotFound,
			wantMsg:  "application not found",
		},
		{
			name:     "no-op transition",
			err:      domain.ErrNoOpTransition,
			wantType: apperrors.TypeConflict,
			wantMsg:  "application already has the requested status",
		},
		{
			name:     "storage",
			err:      domain.WrapStorage("update application", errors.New("pq: deadlock detected")),
			wantType: apperrors.TypeInternal,
			wantMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantMsg, got.Message)
			assert.Equal(t, tt.wantField, got.Context["field"])
		})
	}
}

func TestTranslateDomainError_Unknown(t *testing.T) {
	assert.Nil(t, translateDomainError(errors.New("something else")))
}

func TestStorageErrorIsNotEchoed(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		getFn: func(_ context.Context, _ int64) (*domain.Application, error) {
			return nil, domain.WrapStorage("select application", errors.New("pq: password authentication failed"))
		},
	})

	rec := serve(srv, http.MethodGet, "/applications/1", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","type":"internal"}`, rec.Body.String())
}

func TestSecureHeaders_HSTSOnlyInProduction(t *testing.T) {
	tests := []struct {
		appEnv string
		want   string
	}{
		{"production", "max-age=63072000; includeSubdomains"},
		{"development", ""},
	}

	for _, tt := range tests {
		t.Run(tt.appEnv, func(t *testing.T) {
			cfg := testConfig()
			cfg.AppEnv = tt.appEnv
			srv := newTestServerWithConfig(t, cfg, &mockAppService{})

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(echo.HeaderXForwardedProto, "https")
			rec := httptest.NewRecorder()
			srv.echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get(echo.HeaderStrictTransportSecurity))
			assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
		})
	}
}
