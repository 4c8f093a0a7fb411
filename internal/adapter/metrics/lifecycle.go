package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/applied/internal/domain"
)

// LifecycleMetrics counts lifecycle outcomes. It implements app.Recorder.
type LifecycleMetrics struct {
	Created     *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Edits       prometheus.Counter
	Failures    *prometheus.CounterVec
}

// NewLifecycleMetrics creates and registers lifecycle metrics on the given registry.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	m := &LifecycleMetrics{
		Created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "applications_created_total",
			Help:      "Total number of applications created, by initial status.",
		}, []string{"status"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of status transitions.",
		}, []string{"from", "to"}),
		Edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "edits_total",
			Help:      "Total number of field edits.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "failures_total",
			Help:      "Total number of rejected or failed lifecycle operations.",
		}, []string{"operation", "kind"}),
	}

	reg.MustRegister(m.Created, m.Transitions, m.Edits, m.Failures)
	return m
}

func (m *LifecycleMetrics) ApplicationCreated(status domain.Status) {
	m.Created.WithLabelValues(string(status)).Inc()
}

func (m *LifecycleMetrics) StatusChanged(from, to domain.Status) {
	m.Transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *LifecycleMetrics) ApplicationEdited() {
	m.Edits.Inc()
}

func (m *LifecycleMetrics) OperationFailed(operation, kind string) {
	m.Failures.WithLabelValues(operation, kind).Inc()
}

// EventMetrics counts event fan-out results. It implements redis.PublishObserver.
type EventMetrics struct {
	Published *prometheus.CounterVec
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	m := &EventMetrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of application events published, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.Published)
	return m
}

func (m *EventMetrics) EventPublished(err error) {
	m.Published.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
