package httpserver

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/applied/internal/domain"
	"github.com/pscheid92/applied/internal/platform/correlation"
	apperrors "github.com/pscheid92/applied/internal/platform/errors"
)

const correlationHeader = correlation.HeaderName

// correlationMiddleware reuses a well-formed incoming request id or assigns a
// new one, and echoes it on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlationHeader))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlationHeader, id)
		return next(c)
	}
}

// translateDomainError maps lifecycle errors onto HTTP error types.
// Storage failures keep their cause for the log but never expose it.
func translateDomainError(err error) *apperrors.Error {
	if validationErr, ok := errors.AsType[*domain.ValidationError](err); ok {
		structuredErr := apperrors.ValidationError(validationErr.Error())
		if validationErr.Field != "" {
			structuredErr = structuredErr.WithField("field", validationErr.Field)
		}
		return structuredErr
	}
	switch {
	case errors.Is(err, domain.ErrApplicationNotFound):
		return apperrors.NotFoundError(domain.ErrApplicationNotFound.Error())
	case errors.Is(err, domain.ErrNoOpTransition):
		return apperrors.ConflictError(domain.ErrNoOpTransition.Error())
	}
	if storageErr, ok := errors.AsType[*domain.StorageError](err); ok {
		return apperrors.InternalError("internal server error", storageErr)
	}
	return nil
}
