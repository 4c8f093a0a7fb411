package domain

import (
	"context"
	"time"
)

// EventType tags an audit entry. It is an open set: stores persist any value.
type EventType string

const (
	EventTypeStatusChange EventType = "status_change"
	EventTypeEdit         EventType = "edit"
)

// ApplicationEvent is one immutable audit entry.
type ApplicationEvent struct {
	ID            int64
	ApplicationID int64
	Type          EventType
	FromStatus    *Status
	ToStatus      *Status
	Note          *string
	OccurredAt    time.Time
}

func (e ApplicationEvent) IsStatusChange() bool {
	return e.Type == EventTypeStatusChange
}

// EventDraft is an event before the log assigns its id. A zero OccurredAt is
// stamped by the log at append time.
type EventDraft struct {
	Type       EventType
	FromStatus *Status
	ToStatus   *Status
	Note       *string
	OccurredAt time.Time
}

// EventLog is the append-only ledger of application events.
type EventLog interface {
	Append(ctx context.Context, applicationID int64, draft EventDraft) (*ApplicationEvent, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]ApplicationEvent, error)
}

// EventPublisher fans committed events out to other consumers.
// Publishing is best effort and never part of the write transaction.
type EventPublisher interface {
	PublishApplicationEvent(ctx context.Context, event ApplicationEvent) error
}
