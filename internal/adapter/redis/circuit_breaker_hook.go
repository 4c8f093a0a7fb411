package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// BreakerObserver is told about circuit state transitions. The metrics adapter implements it.
type BreakerObserver interface {
	BreakerStateChanged(from, to string)
}

// CircuitBreakerHook fails Redis commands fast while Redis keeps failing, so a
// dead event stream costs lifecycle writes no extra latency. It is installed
// after the client has connected; startup uses its own retry policy.
type CircuitBreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// DefaultBreakerSettings opens after at least 5 requests in a 10s window fail at
// 60% or more, and probes again after 30s.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	}
}

// NewCircuitBreakerHook wraps every command and pipeline in one breaker. observer may be nil.
func NewCircuitBreakerHook(settings gobreaker.Settings, observer BreakerObserver) *CircuitBreakerHook {
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		if observer != nil {
			observer.BreakerStateChanged(from.String(), to.String())
		}
	}
	return &CircuitBreakerHook{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		return h.execute(func() error { return next(ctx, cmd) })
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		return h.execute(func() error { return next(ctx, cmds) })
	}
}

// execute runs op through the breaker. redis.Nil counts as success and is
// handed back to the caller unchanged.
func (h *CircuitBreakerHook) execute(op func() error) error {
	var opErr error
	_, err := h.cb.Execute(func() (any, error) {
		opErr = op()
		return nil, ignoreNil(opErr)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("redis circuit breaker open: %w", err)
	}
	return opErr
}

// State returns the current breaker state.
func (h *CircuitBreakerHook) State() gobreaker.State {
	return h.cb.State()
}
