// Package memory provides a process-local ApplicationRepository and EventLog
// for single-instance mode and tests. State is lost on restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/applied/internal/domain"
)

type record struct {
	// mu serializes Mutate calls for one application.
	mu  sync.Mutex
	app domain.Application
}

// Store keeps applications and their events in maps. The store-wide lock
// guards the maps and snapshots; the per-record lock is held for the whole
// read-modify-write of Mutate so concurrent transitions on one application
// are linearized.
type Store struct {
	clock clockwork.Clock

	mu          sync.RWMutex
	records     map[int64]*record
	events      map[int64][]domain.ApplicationEvent
	nextAppID   int64
	nextEventID int64
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:   clock,
		records: make(map[int64]*record),
		events:  make(map[int64][]domain.ApplicationEvent),
	}
}

func (s *Store) Create(_ context.Context, app domain.Application) (*domain.Application, error) {
	now := s.clock.Now()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = app.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAppID++
	app.ID = s.nextAppID
	app = cloneApplication(app)
	s.records[app.ID] = &record{app: app}

	created := cloneApplication(app)
	return &created, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	app := cloneApplication(rec.app)
	return &app, nil
}

// List returns every application ordered by id.
func (s *Store) List(_ context.Context) ([]domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := make([]domain.Application, 0, len(s.records))
	for _, rec := range s.records {
		apps = append(apps, cloneApplication(rec.app))
	}
	slices.SortFunc(apps, func(a, b domain.Application) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return apps, nil
}

// Mutate runs fn against the committed snapshot and stores its result together
// with the event in one step. When fn fails nothing is written.
func (s *Store) Mutate(ctx context.Context, id int64, fn domain.MutateFunc) (*domain.Application, *domain.ApplicationEvent, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, domain.ErrApplicationNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	current := cloneApplication(rec.app)
	s.mu.RUnlock()

	next, draft, err := fn(current)
	if err != nil {
		return nil, nil, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	if draft.OccurredAt.IsZero() {
		draft.OccurredAt = next.UpdatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.app = cloneApplication(next)
	event := s.appendLocked(id, draft)

	stored := cloneApplication(next)
	return &stored, &event, nil
}

// Append adds an event outside of Mutate. A zero OccurredAt is stamped with the store clock.
func (s *Store) Append(_ context.Context, applicationID int64, draft domain.EventDraft) (*domain.ApplicationEvent, error) {
	if draft.OccurredAt.IsZero() {
		draft.OccurredAt = s.clock.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[applicationID]; !ok {
		return nil, domain.ErrApplicationNotFound
	}
	event := s.appendLocked(applicationID, draft)
	return &event, nil
}

// ListByApplication returns events ordered by occurred_at, then id.
func (s *Store) ListByApplication(_ context.Context, applicationID int64) ([]domain.ApplicationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.events[applicationID]
	events := make([]domain.ApplicationEvent, 0, len(stored))
	for _, e := range stored {
		events = append(events, cloneEvent(e))
	}
	slices.SortStableFunc(events, func(a, b domain.ApplicationEvent) int {
		if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return events, nil
}

// appendLocked must be called with s.mu held for writing.
func (s *Store) appendLocked(applicationID int64, draft domain.EventDraft) domain.ApplicationEvent {
	s.nextEventID++
	event := cloneEvent(domain.ApplicationEvent{
		ID:            s.nextEventID,
		ApplicationID: applicationID,
		Type:          draft.Type,
		FromStatus:    draft.FromStatus,
		ToStatus:      draft.ToStatus,
		Note:          draft.Note,
		OccurredAt:    draft.OccurredAt,
	})
	s.events[applicationID] = append(s.events[applicationID], event)
	return cloneEvent(event)
}

func cloneApplication(app domain.Application) domain.Application {
	app.JobURL = clonePtr(app.JobURL)
	app.JobDescription = clonePtr(app.JobDescription)
	return app
}

func cloneEvent(e domain.ApplicationEvent) domain.ApplicationEvent {
	e.FromStatus = clonePtr(e.FromStatus)
	e.ToStatus = clonePtr(e.ToStatus)
	e.Note = clonePtr(e.Note)
	return e
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
