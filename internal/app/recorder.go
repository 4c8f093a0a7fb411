package app

import (
	"errors"

	"github.com/pscheid92/applied/internal/domain"
)

const (
	opCreate       = "create"
	opChangeStatus = "change_status"
	opEdit         = "edit"
)

// Failure kinds, used as metric labels and log attributes.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindNoOp       = "no_op_transition"
	KindStorage    = "storage"
	KindUnknown    = "unknown"
)

// Recorder observes lifecycle outcomes. The metrics adapter implements it.
type Recorder interface {
	ApplicationCreated(status domain.Status)
	StatusChanged(from, to domain.Status)
	ApplicationEdited()
	OperationFailed(operation, kind string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ApplicationCreated(domain.Status)            {}
func (NopRecorder) StatusChanged(domain.Status, domain.Status) {}
func (NopRecorder) ApplicationEdited()                          {}
func (NopRecorder) OperationFailed(string, string)              {}

// ErrorKind classifies an error returned by the service.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrApplicationNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrNoOpTransition):
		return KindNoOp
	}
	if _, ok := errors.AsType[*domain.ValidationError](err); ok {
		return KindValidation
	}
	if _, ok := errors.AsType[*domain.StorageError](err); ok {
		return KindStorage
	}
	return KindUnknown
}
