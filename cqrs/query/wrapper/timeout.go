package wrapper

import (
	"context"
	"time"

	"github.com/rise-and-shine/repokit/cqrs/query"
)

// TimeoutQueryWrapper bounds every execution with a deadline.
type TimeoutQueryWrapper[I query.Input, R query.Result] struct {
	timeout time.Duration
	next    query.Query[I, R]
}

func NewTimeoutQueryWrapper[I query.Input, R query.Result](timeout time.Duration) query.WrapFunc[I, R] {
	return func(next query.Query[I, R]) query.Query[I, R] {
		return &TimeoutQueryWrapper[I, R]{timeout: timeout, next: next}
	}
}

func (q *TimeoutQueryWrapper[I, R]) Execute(ctx context.Context, input I) (R, error) {
	if q.timeout <= 0 {
		return q.next.Execute(ctx, input)
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	return q.next.Execute(ctx, input)
}
