package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/applied/internal/domain"
	"github.com/pscheid92/applied/internal/projection"
)

// Service is the lifecycle engine. It orchestrates all use cases.
type Service struct {
	applications domain.ApplicationRepository
	events       domain.EventLog
	publisher    domain.EventPublisher
	projector    *projection.Projector
	recorder     Recorder
	clock        clockwork.Clock
}

// NewService creates the lifecycle engine.
// publisher and recorder may be nil.
func NewService(applications domain.ApplicationRepository, events domain.EventLog, publisher domain.EventPublisher, projector *projection.Projector, recorder Recorder, clock clockwork.Clock) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if projector == nil {
		projector = projection.New(projection.Options{})
	}
	return &Service{
		applications: applications,
		events:       events,
		publisher:    publisher,
		projector:    projector,
		recorder:     recorder,
		clock:        clock,
	}
}

// CreateApplication validates the request and stores a new application.
// Creation is not a transition, so no event is appended.
func (s *Service) CreateApplication(ctx context.Context, req CreateApplicationRequest) (*domain.Application, error) {
	app, err := s.newApplication(req)
	if err != nil {
		s.fail(ctx, opCreate, err)
		return nil, err
	}

	created, err := s.applications.Create(ctx, app)
	if err != nil {
		s.fail(ctx, opCreate, err)
		return nil, err
	}

	s.recorder.ApplicationCreated(created.Status)
	slog.InfoContext(ctx, "Application created", "application_id", created.ID, "status", created.Status)
	return created, nil
}

func (s *Service) newApplication(req CreateApplicationRequest) (domain.Application, error) {
	company, err := requiredText("company_name", req.CompanyName, domain.MaxCompanyNameLength)
	if err != nil {
		return domain.Application{}, err
	}
	role, err := requiredText("role_title", req.RoleTitle, domain.MaxRoleTitleLength)
	if err != nil {
		return domain.Application{}, err
	}

	status := domain.DefaultStatus
	if req.Status != nil {
		if status, err = domain.ParseStatus(*req.Status); err != nil {
			return domain.Application{}, err
		}
	}

	now := s.clock.Now()
	appliedAt := domain.DateOf(now.UTC())
	if req.AppliedAt != nil {
		if appliedAt, err = domain.ParseDate(*req.AppliedAt); err != nil {
			return domain.Application{}, err
		}
	}

	jobURL, err := optionalText("job_url", req.JobURL, domain.MaxJobURLLength, true)
	if err != nil {
		return domain.Application{}, err
	}
	jobDescription, err := optionalText("job_description", req.JobDescription, domain.MaxJobDescriptionLength, false)
	if err != nil {
		return domain.Application{}, err
	}
	// The note is validated but not stored: creation appends no event.
	if _, err := optionalText("note", req.Note, domain.MaxNoteLength, false); err != nil {
		return domain.Application{}, err
	}

	return domain.Application{
		CompanyName:    company,
		RoleTitle:      role,
		Status:         status,
		AppliedAt:      appliedAt,
		JobURL:         jobURL,
		JobDescription: jobDescription,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ChangeStatus moves an application to a different status and records the transition.
// Requesting the current status fails with domain.ErrNoOpTransition. The check runs
// against committed state under the store's per-application lock.
func (s *Service) ChangeStatus(ctx context.Context, id int64, req ChangeStatusRequest) (*domain.Application, error) {
	to, err := domain.ParseStatus(req.ToStatus)
	if err != nil {
		s.fail(ctx, opChangeStatus, err)
		return nil, err
	}
	note, err := optionalText("note", req.Note, domain.MaxNoteLength, false)
	if err != nil {
		s.fail(ctx, opChangeStatus, err)
		return nil, err
	}

	app, event, err := s.applications.Mutate(ctx, id, func(current domain.Application) (domain.Application, domain.EventDraft, error) {
		if current.Status == to {
			return domain.Application{}, domain.EventDraft{}, domain.ErrNoOpTransition
		}
		from, target := current.Status, to

		next := current
		next.Status = target
		next.UpdatedAt = s.advance(current.UpdatedAt)

		return next, domain.EventDraft{
			Type:       domain.EventTypeStatusChange,
			FromStatus: &from,
			ToStatus:   &target,
			Note:       note,
		}, nil
	})
	if err != nil {
		s.fail(ctx, opChangeStatus, err, "application_id", id, "to_status", to)
		return nil, err
	}

	s.recorder.StatusChanged(*event.FromStatus, *event.ToStatus)
	slog.InfoContext(ctx, "Application status changed",
		"application_id", id,
		"event_id", event.ID,
		"from_status", *event.FromStatus,
		"to_status", *event.ToStatus)
	s.publish(ctx, *event)
	return app, nil
}

// EditApplication applies the supplied fields and records an edit event.
// Identical values are not deduplicated: every successful call appends one event.
func (s *Service) EditApplication(ctx context.Context, id int64, req EditApplicationRequest) (*domain.Application, error) {
	p, err := parsePatch(req)
	if err != nil {
		s.fail(ctx, opEdit, err)
		return nil, err
	}

	summary := "edited: " + strings.Join(p.fields, ", ")

	app, event, err := s.applications.Mutate(ctx, id, func(current domain.Application) (domain.Application, domain.EventDraft, error) {
		next := p.apply(current)
		next.UpdatedAt = s.advance(current.UpdatedAt)
		return next, domain.EventDraft{
			Type: domain.EventTypeEdit,
			Note: &summary,
		}, nil
	})
	if err != nil {
		s.fail(ctx, opEdit, err, "application_id", id)
		return nil, err
	}

	s.recorder.ApplicationEdited()
	slog.InfoContext(ctx, "Application edited", "application_id", id, "event_id", event.ID, "fields", p.fields)
	s.publish(ctx, *event)
	return app, nil
}

// GetApplication returns the current snapshot of one application.
func (s *Service) GetApplication(ctx context.Context, id int64) (*domain.Application, error) {
	return s.applications.GetByID(ctx, id)
}

// ListEvents returns the history of an existing application in log order.
func (s *Service) ListEvents(ctx context.Context, id int64) ([]domain.ApplicationEvent, error) {
	if _, err := s.applications.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.events.ListByApplication(ctx, id)
}

// advance returns now, or prev when the clock reads earlier than prev,
// so updated_at never moves backwards.
func (s *Service) advance(prev time.Time) time.Time {
	now := s.clock.Now()
	if now.Before(prev) {
		return prev
	}
	return now
}

func (s *Service) publish(ctx context.Context, event domain.ApplicationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishApplicationEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish application event",
			"application_id", event.ApplicationID,
			"event_id", event.ID,
			"error", err)
	}
}

func (s *Service) fail(ctx context.Context, operation string, err error, attrs ...any) {
	kind := ErrorKind(err)
	s.recorder.OperationFailed(operation, kind)

	attrs = append(attrs, "operation", operation, "kind", kind, "error", err)
	if kind == KindStorage || kind == KindUnknown {
		slog.ErrorContext(ctx, "Lifecycle operation failed", attrs...)
		return
	}
	slog.DebugContext(ctx, "Lifecycle operation rejected", attrs...)
}
