package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/applied/internal/adapter/metrics"
	"github.com/pscheid92/applied/internal/app"
	"github.com/pscheid92/applied/internal/domain"
	"github.com/pscheid92/applied/internal/platform/config"
	apperrors "github.com/pscheid92/applied/internal/platform/errors"
	"github.com/pscheid92/applied/internal/projection"
)

type appService interface {
	CreateApplication(ctx context.Context, req app.CreateApplicationRequest) (*domain.Application, error)
	ChangeStatus(ctx context.Context, id int64, req app.ChangeStatusRequest) (*domain.Application, error)
	EditApplication(ctx context.Context, id int64, req app.EditApplicationRequest) (*domain.Application, error)
	GetApplication(ctx context.Context, id int64) (*domain.Application, error)
	ListApplications(ctx context.Context, q app.ListQuery) ([]domain.Application, error)
	ListEvents(ctx context.Context, id int64) ([]domain.ApplicationEvent, error)
	StaleApplications(ctx context.Context, limit int) (projection.StaleReport, error)
	ApplicationStaleness(ctx context.Context, id int64) (projection.Staleness, error)
	VerifyHistory(ctx context.Context, id int64) (*app.HistoryCheck, error)
}

// recentEvents reads the capped stream of published events.
type recentEvents interface {
	Recent(ctx context.Context, limit int64) ([]domain.ApplicationEvent, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app    appService
	recent recentEvents

	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics
	errorsTotal *prometheus.CounterVec

	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

// NewServer builds the HTTP adapter. recent may be nil when no event stream is configured.
func NewServer(cfg *config.Config, app appService, recent recentEvents, reg *prometheus.Registry, healthChecks []HealthCheck, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		recent:       recent,
		registry:     reg,
		httpMetrics:  metrics.NewHTTPMetrics(reg),
		errorsTotal:  apperrors.NewErrorsCounter(reg),
		healthChecks: healthChecks,
		clock:        clock,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
