package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// QueryObserver receives the outcome of every query. The metrics adapter implements it.
type QueryObserver interface {
	ObserveQuery(operation string, duration time.Duration, err error)
}

// QueryTracer reports query timings to a QueryObserver.
type QueryTracer struct {
	observer QueryObserver
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(observer QueryObserver) *QueryTracer {
	return &QueryTracer{observer: observer}
}

type queryContextKey struct{}

type queryContext struct {
	start     time.Time
	operation string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		start:     time.Now(),
		operation: queryOperation(data.SQL),
	})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}
	t.observer.ObserveQuery(qctx.operation, time.Since(qctx.start), data.Err)
}

// queryOperation reduces SQL to its leading keyword to keep label cardinality low.
func queryOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}
