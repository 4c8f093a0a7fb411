package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/applied/internal/app"
	"github.com/pscheid92/applied/internal/domain"
	"github.com/pscheid92/applied/internal/platform/config"
	"github.com/pscheid92/applied/internal/projection"
)

// --- Mock implementations ---

type mockAppService struct {
	createFn       func(ctx context.Context, req app.CreateApplicationRequest) (*domain.Application, error)
	changeStatusFn func(ctx context.Context, id int64, req app.ChangeStatusRequest) (*domain.Application, error)
	editFn         func(ctx context.Context, id int64, req app.EditApplicationRequest) (*domain.Application, error)
	getFn          func(ctx context.Context, id int64) (*domain.Application, error)
	listFn         func(ctx context.Context, q app.ListQuery) ([]domain.Application, error)
	listEventsFn   func(ctx context.Context, id int64) ([]domain.ApplicationEvent, error)
	staleFn        func(ctx context.Context, limit int) (projection.StaleReport, error)
	stalenessFn    func(ctx context.Context, id int64) (projection.Staleness, error)
	verifyFn       func(ctx context.Context, id int64) (*app.HistoryCheck, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockAppService) CreateApplication(ctx context.Context, req app.CreateApplicationRequest) (*domain.Application, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) ChangeStatus(ctx context.Context, id int64, req app.ChangeStatusRequest) (*domain.Application, error) {
	if m.changeStatusFn != nil {
		return m.changeStatusFn(ctx, id, req)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) EditApplication(ctx context.Context, id int64, req app.EditApplicationRequest) (*domain.Application, error) {
	if m.editFn != nil {
		return m.editFn(ctx, id, req)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) GetApplication(ctx context.Context, id int64) (*domain.Application, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrApplicationNotFound
}

func (m *mockAppService) ListApplications(ctx context.Context, q app.ListQuery) ([]domain.Application, error) {
	if m.listFn != nil {
		return m.listFn(ctx, q)
	}
	return nil, nil
}

func (m *mockAppService) ListEvents(ctx context.Context, id int64) ([]domain.ApplicationEvent, error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(ctx, id)
	}
	return nil, domain.ErrApplicationNotFound
}

func (m *mockAppService) StaleApplications(ctx context.Context, limit int) (projection.StaleReport, error) {
	if m.staleFn != nil {
		return m.staleFn(ctx, limit)
	}
	return projection.StaleReport{Items: []projection.StaleItem{}}, nil
}

func (m *mockAppService) ApplicationStaleness(ctx context.Context, id int64) (projection.Staleness, error) {
	if m.stalenessFn != nil {
		return m.stalenessFn(ctx, id)
	}
	return projection.Staleness{}, domain.ErrApplicationNotFound
}

func (m *mockAppService) VerifyHistory(ctx context.Context, id int64) (*app.HistoryCheck, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, id)
	}
	return nil, domain.ErrApplicationNotFound
}

type mockRecentEvents struct {
	recentFn func(ctx context.Context, limit int64) ([]domain.ApplicationEvent, error)
}

func (m *mockRecentEvents) Recent(ctx context.Context, limit int64) ([]domain.ApplicationEvent, error) {
	return m.recentFn(ctx, limit)
}

// --- Test helpers ---

var testNow = time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
	}
}

func newTestServer(t *testing.T, svc appService, opts ...func(*Server)) *Server {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(), svc, opts...)
}

// newTestServerWithConfig is for settings that NewServer consumes while
// building the middleware chain.
func newTestServerWithConfig(t *testing.T, cfg *config.Config, svc appService, opts ...func(*Server)) *Server {
	t.Helper()

	srv := NewServer(cfg, svc, nil, prometheus.NewRegistry(), nil, clockwork.NewFakeClockAt(testNow))
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withRecentEvents(recent recentEvents) func(*Server) {
	return func(s *Server) {
		s.recent = recent
	}
}

// serve runs a request through the full middleware chain.
func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func sampleApplication(id int64) *domain.Application {
	url := "https://acme.example/jobs/42"
	return &domain.Application{
		ID:          id,
		CompanyName: "Acme",
		RoleTitle:   "Backend Engineer",
		Status:      domain.StatusApplied,
		AppliedAt:   domain.Date{Year: 2024, Month: time.May, Day: 1},
		JobURL:      &url,
		CreatedAt:   testNow.Add(-48 * time.Hour),
		UpdatedAt:   testNow.Add(-24 * time.Hour),
	}
}

func statusPtr(s domain.Status) *domain.Status { return &s }

func strPtr(s string) *string { return &s }
