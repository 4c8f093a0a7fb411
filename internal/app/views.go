package app

import (
	"context"

	"github.com/pscheid92/applied/internal/domain"
	"github.com/pscheid92/applied/internal/projection"
)

// HistoryCheck compares an application's status with the replay of its log.
type HistoryCheck struct {
	ApplicationID  int64
	InitialStatus  domain.Status
	ReplayedStatus domain.Status
	CurrentStatus  domain.Status
	EventCount     int
	BrokenLinks    []int64
}

// Consistent reports whether the log reproduces the current status with an unbroken chain.
func (h HistoryCheck) Consistent() bool {
	return h.ReplayedStatus == h.CurrentStatus && len(h.BrokenLinks) == 0
}

// ListApplications filters by status, then sorts. Invalid filter or sort values
// fail with a validation error before the store is read.
func (s *Service) ListApplications(ctx context.Context, q ListQuery) ([]domain.Application, error) {
	filter, err := projection.ParseStatusFilter(q.Status)
	if err != nil {
		return nil, err
	}
	mode, err := projection.ParseSortMode(q.Sort)
	if err != nil {
		return nil, err
	}

	apps, err := s.applications.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.projector.List(apps, filter, mode), nil
}

// StaleApplications ranks stale applications. limit <= 0 uses the configured top N.
func (s *Service) StaleApplications(ctx context.Context, limit int) (projection.StaleReport, error) {
	apps, err := s.applications.List(ctx)
	if err != nil {
		return projection.StaleReport{}, err
	}
	return s.projector.StaleRanking(apps, s.clock.Now(), limit), nil
}

// ApplicationStaleness computes the staleness of one application.
func (s *Service) ApplicationStaleness(ctx context.Context, id int64) (projection.Staleness, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return projection.Staleness{}, err
	}
	return s.projector.Staleness(*app, s.clock.Now()), nil
}

// VerifyHistory replays the event log of one application against its current status.
func (s *Service) VerifyHistory(ctx context.Context, id int64) (*HistoryCheck, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	initial := projection.InitialStatus(app.Status, events)
	return &HistoryCheck{
		ApplicationID:  id,
		InitialStatus:  initial,
		ReplayedStatus: projection.Replay(initial, events),
		CurrentStatus:  app.Status,
		EventCount:     len(events),
		BrokenLinks:    projection.BrokenLinks(initial, events),
	}, nil
}
