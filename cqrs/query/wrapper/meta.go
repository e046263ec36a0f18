package wrapper

import (
	"context"

	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/meta"
	"github.com/rise-and-shine/repokit/observability/tracing"
)

// MetaInjectQueryWrapper attaches the trace id, the query name and the service
// info to the context before the query runs, for the loggers downstream.
// A trace id already in the context is kept.
type MetaInjectQueryWrapper[I query.Input, R query.Result] struct {
	queryName string
	next      query.Query[I, R]
}

func NewMetaInjectQueryWrapper[I query.Input, R query.Result](queryName string) query.WrapFunc[I, R] {
	return func(next query.Query[I, R]) query.Query[I, R] {
		return &MetaInjectQueryWrapper[I, R]{queryName: queryName, next: next}
	}
}

func (q *MetaInjectQueryWrapper[I, R]) Execute(ctx context.Context, input I) (R, error) {
	metadata := map[meta.ContextKey]string{ //nolint:exhaustive // user id is set by the transport
		meta.TraceID:        tracing.GetStartingTraceID(ctx),
		meta.Operation:      q.queryName,
		meta.ServiceName:    meta.GetServiceName(),
		meta.ServiceVersion: meta.GetServiceVersion(),
	}

	return q.next.Execute(meta.InjectMetaToContext(ctx, metadata), input)
}
