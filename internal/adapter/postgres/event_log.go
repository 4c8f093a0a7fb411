package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/applied/internal/domain"
)

const eventColumns = `id, application_id, event_type, from_status, to_status, note, occurred_at`

// foreignKeyViolation is the SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

// EventLog is the append-only history table. Rows are never updated or deleted.
type EventLog struct {
	pool *pgxpool.Pool
}

func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanEvent(row pgx.Row) (*domain.ApplicationEvent, error) {
	var (
		e          domain.ApplicationEvent
		eventType  string
		fromStatus *string
		toStatus   *string
	)
	if err := row.Scan(&e.ID, &e.ApplicationID, &eventType, &fromStatus, &toStatus, &e.Note, &e.OccurredAt); err != nil {
		return nil, err
	}
	e.Type = domain.EventType(eventType)
	e.FromStatus = toStatusPtr(fromStatus)
	e.ToStatus = toStatusPtr(toStatus)
	return &e, nil
}

func toStatusPtr(s *string) *domain.Status {
	if s == nil {
		return nil
	}
	status := domain.Status(*s)
	return &status
}

func fromStatusPtr(s *domain.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func insertEvent(ctx context.Context, q querier, applicationID int64, draft domain.EventDraft) (*domain.ApplicationEvent, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO application_events (application_id, event_type, from_status, to_status, note, occurred_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		RETURNING `+eventColumns,
		applicationID,
		string(draft.Type),
		fromStatusPtr(draft.FromStatus),
		fromStatusPtr(draft.ToStatus),
		draft.Note,
		nullTime(draft.OccurredAt),
	)
	return scanEvent(row)
}

// Append adds an event outside of a mutation. A zero OccurredAt takes the database clock.
func (l *EventLog) Append(ctx context.Context, applicationID int64, draft domain.EventDraft) (*domain.ApplicationEvent, error) {
	event, err := insertEvent(ctx, l.pool, applicationID, draft)
	if pgErr, ok := errors.AsType[*pgconn.PgError](err); ok && pgErr.Code == foreignKeyViolation {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, domain.WrapStorage("append event", err)
	}
	return event, nil
}

// ListByApplication returns events ordered by occurred_at, then id.
func (l *EventLog) ListByApplication(ctx context.Context, applicationID int64) ([]domain.ApplicationEvent, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM application_events
		WHERE application_id = $1
		ORDER BY occurred_at, id`, applicationID)
	if err != nil {
		return nil, domain.WrapStorage("list events", err)
	}
	defer rows.Close()

	events := []domain.ApplicationEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, domain.WrapStorage("scan event", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapStorage("list events", err)
	}
	return events, nil
}
