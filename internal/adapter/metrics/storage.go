package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DatabaseMetrics tracks PostgreSQL query timings. It implements postgres.QueryObserver.
type DatabaseMetrics struct {
	QueryDuration *prometheus.HistogramVec
	Errors        *prometheus.CounterVec
}

func NewDatabaseMetrics(reg prometheus.Registerer) *DatabaseMetrics {
	m := &DatabaseMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds, by leading SQL keyword.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Total number of failed database queries.",
		}, []string{"operation"}),
	}

	reg.MustRegister(m.QueryDuration, m.Errors)
	return m
}

func (m *DatabaseMetrics) ObserveQuery(operation string, duration time.Duration, err error) {
	m.QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(operation).Inc()
	}
}

// RedisMetrics tracks Redis command outcomes and the circuit breaker.
// It implements redis.CommandObserver and redis.BreakerObserver.
type RedisMetrics struct {
	CommandDuration     *prometheus.HistogramVec
	CommandsTotal       *prometheus.CounterVec
	ConnectionErrors    prometheus.Counter
	BreakerState        prometheus.Gauge
	BreakerStateChanges *prometheus.CounterVec
}

func NewRedisMetrics(reg prometheus.Registerer) *RedisMetrics {
	m := &RedisMetrics{
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "command_duration_seconds",
			Help:      "Duration of Redis commands in seconds.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		}, []string{"command"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "commands_total",
			Help:      "Total number of Redis commands, by result.",
		}, []string{"command", "result"}),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "connection_errors_total",
			Help:      "Total number of failed Redis dials.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of circuit breaker state transitions, by new state.",
		}, []string{"to"}),
	}

	reg.MustRegister(m.CommandDuration, m.CommandsTotal, m.ConnectionErrors, m.BreakerState, m.BreakerStateChanges)
	return m
}

func (m *RedisMetrics) ObserveCommand(command string, duration time.Duration, err error) {
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
	m.CommandsTotal.WithLabelValues(command, result(err)).Inc()
}

func (m *RedisMetrics) ConnectionFailed() {
	m.ConnectionErrors.Inc()
}

func (m *RedisMetrics) BreakerStateChanged(_, to string) {
	m.BreakerStateChanges.WithLabelValues(to).Inc()
	m.BreakerState.Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
