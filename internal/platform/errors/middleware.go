package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Translator maps errors from lower layers to structured errors. It returns
// nil for errors it does not recognize.
type Translator func(err error) *Error

// NewErrorsCounter creates and registers the HTTP error counter.
func NewErrorsCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "applied",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Total HTTP errors by error type.",
	}, []string{"type"})
	reg.MustRegister(c)
	return c
}

// Middleware converts errors returned by handlers into JSON responses.
// translate and errorsTotal may be nil.
func Middleware(translate Translator, errorsTotal *prometheus.CounterVec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			if c.Response().Committed {
				return err
			}

			structuredErr := resolve(err, translate)
			if errorsTotal != nil {
				errorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()
			}
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func resolve(err error, translate Translator) *Error {
	if httpErr, ok := errors.AsType[*echo.HTTPError](err); ok {
		return WrapHTTPError(httpErr)
	}
	if translate != nil {
		if structuredErr := translate(err); structuredErr != nil {
			return structuredErr
		}
	}
	return AsStructuredError(err)
}

func logError(c echo.Context, err *Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}
	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}
	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause)
	}

	switch err.Type {
	case TypeValidation, TypeNotFound:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case TypeConflict, TypeRateLimited:
		slog.WarnContext(ctx, "Request conflict", attrs...)
	case TypeUnavailable:
		slog.WarnContext(ctx, "Dependency unavailable", attrs...)
	default:
		slog.ErrorContext(ctx, "Internal error", attrs...)
	}
}

// WrapHTTPError converts Echo's HTTPError to a structured error.
func WrapHTTPError(httpErr *echo.HTTPError) *Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}

	var errType ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		errType = TypeValidation
	case http.StatusNotFound:
		errType = TypeNotFound
	case http.StatusConflict:
		errType = TypeConflict
	case http.StatusTooManyRequests:
		errType = TypeRateLimited
	case http.StatusServiceUnavailable:
		errType = TypeUnavailable
	default:
		errType = TypeInternal
	}
	if httpErr.Code >= http.StatusInternalServerError && errType == TypeInternal {
		message = "internal server error"
	}

	structuredErr := newError(errType, message, httpErr.Internal)
	structuredErr.status = httpErr.Code
	return structuredErr
}
