package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pscheid92/applied/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	eventsChannel = "applications:events"
	eventsStream  = "applications:events:recent"

	// DefaultStreamMaxLen bounds the recent-events stream.
	DefaultStreamMaxLen = 1000

	payloadField = "event"
)

// PublishObserver counts publish outcomes. The metrics adapter implements it.
type PublishObserver interface {
	EventPublished(err error)
}

// eventMessage is the wire form of a committed event.
type eventMessage struct {
	ID            int64   `json:"id"`
	ApplicationID int64   `json:"application_id"`
	EventType     string  `json:"event_type"`
	FromStatus    *string `json:"from_status"`
	ToStatus      *string `json:"to_status"`
	Note          *string `json:"note"`
	OccurredAt    string  `json:"occurred_at"`
}

func toMessage(e domain.ApplicationEvent) eventMessage {
	return eventMessage{
		ID:            e.ID,
		ApplicationID: e.ApplicationID,
		EventType:     string(e.Type),
		FromStatus:    statusString(e.FromStatus),
		ToStatus:      statusString(e.ToStatus),
		Note:          e.Note,
		OccurredAt:    e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func (m eventMessage) toDomain() (domain.ApplicationEvent, error) {
	occurredAt, err := time.Parse(time.RFC3339Nano, m.OccurredAt)
	if err != nil {
		return domain.ApplicationEvent{}, fmt.Errorf("invalid occurred_at: %w", err)
	}
	return domain.ApplicationEvent{
		ID:            m.ID,
		ApplicationID: m.ApplicationID,
		Type:          domain.EventType(m.EventType),
		FromStatus:    domainStatus(m.FromStatus),
		ToStatus:      domainStatus(m.ToStatus),
		Note:          m.Note,
		OccurredAt:    occurredAt,
	}, nil
}

func statusString(s *domain.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func domainStatus(s *string) *domain.Status {
	if s == nil {
		return nil
	}
	v := domain.Status(*s)
	return &v
}

// EventPublisher fans committed events out on a pub/sub channel and keeps the
// most recent ones in a capped stream for late subscribers.
type EventPublisher struct {
	rdb      *goredis.Client
	maxLen   int64
	observer PublishObserver
}

// NewEventPublisher creates a publisher. maxLen <= 0 uses DefaultStreamMaxLen; observer may be nil.
func NewEventPublisher(rdb *goredis.Client, maxLen int64, observer PublishObserver) *EventPublisher {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &EventPublisher{rdb: rdb, maxLen: maxLen, observer: observer}
}

func (p *EventPublisher) PublishApplicationEvent(ctx context.Context, event domain.ApplicationEvent) error {
	err := p.publish(ctx, event)
	if p.observer != nil {
		p.observer.EventPublished(err)
	}
	return err
}

func (p *EventPublisher) publish(ctx context.Context, event domain.ApplicationEvent) error {
	payload, err := json.Marshal(toMessage(event))
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.Publish(ctx, eventsChannel, payload)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: eventsStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			payloadField:     payload,
			"application_id": strconv.FormatInt(event.ApplicationID, 10),
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish application event: %w", err)
	}
	return nil
}

// Recent returns up to limit events from the stream, newest first.
func (p *EventPublisher) Recent(ctx context.Context, limit int64) ([]domain.ApplicationEvent, error) {
	entries, err := p.rdb.XRevRangeN(ctx, eventsStream, "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent events: %w", err)
	}

	events := make([]domain.ApplicationEvent, 0, len(entries))
	for _, entry := range entries {
		raw, ok := entry.Values[payloadField].(string)
		if !ok {
			continue
		}
		var msg eventMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode event %s: %w", entry.ID, err)
		}
		event, err := msg.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %s: %w", entry.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}
