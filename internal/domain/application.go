package domain

import (
	"context"
	"time"
)

// Field limits shared by validation and the schema.
const (
	MaxCompanyNameLength    = 200
	MaxRoleTitleLength      = 200
	MaxNoteLength           = 2000
	MaxJobURLLength         = 1000
	MaxJobDescriptionLength = 20000
)

// Application is the current-state snapshot of one job application.
type Application struct {
	ID             int64
	CompanyName    string
	RoleTitle      string
	Status         Status
	AppliedAt      Date
	JobURL         *string
	JobDescription *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MutateFunc receives the committed state of a locked application and returns
// the next state plus the event that records the change. Returning an error
// aborts the mutation without any write.
type MutateFunc func(current Application) (Application, EventDraft, error)

// ApplicationRepository is the record store. Mutate is the only way to change
// an existing application: it persists the returned state and appends the
// returned event as one unit, serialized per application.
type ApplicationRepository interface {
	Create(ctx context.Context, app Application) (*Application, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	List(ctx context.Context) ([]Application, error)
	Mutate(ctx context.Context, id int64, fn MutateFunc) (*Application, *ApplicationEvent, error)
}
