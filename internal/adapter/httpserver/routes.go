package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/applied/internal/adapter/metrics"
	apperrors "github.com/pscheid92/applied/internal/platform/errors"
)

// registerRoutes installs middleware outermost first. The error middleware sits
// inside the metrics middleware so recorded status codes match the response,
// and Recover sits inside the error middleware so panics render as JSON.
func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(s.httpMetrics.Middleware())
	s.echo.Use(apperrors.Middleware(translateDomainError, s.errorsTotal))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            s.hstsMaxAge(),
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.CORSAllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, correlationHeader},
	}))

	limiter := newRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	s.registerHealthRoutes()
	s.registerApplicationRoutes(limiter)

	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.registry)))
}

// hstsMaxAge is two years in production and zero (no header) elsewhere, so
// local HTTPS setups are not pinned. echo only sends the header over HTTPS.
func (s *Server) hstsMaxAge() int {
	if s.config.IsProduction() {
		return 63072000
	}
	return 0
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health/live"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
