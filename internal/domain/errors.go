package domain

import (
	"errors"
	"fmt"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrNoOpTransition      = errors.New("application already has the requested status")
)

// ValidationError reports caller input that can never succeed as given.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StorageError wraps a persistence failure. Op names the storage step that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorage returns nil for a nil err and leaves domain errors untouched, so
// adapters can wrap every driver error at the boundary without masking not-found.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrApplicationNotFound) || errors.Is(err, ErrNoOpTransition) {
		return err
	}
	if _, ok := errors.AsType[*ValidationError](err); ok {
		return err
	}
	if _, ok := errors.AsType[*StorageError](err); ok {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
