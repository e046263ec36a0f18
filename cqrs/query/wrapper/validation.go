package wrapper

import (
	"context"

	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/val"
)

// ValidationQueryWrapper rejects inputs whose `validate` tags fail before the
// wrapped query runs. The error has code val.CodeValidationFailed and lists the
// failed fields.
type ValidationQueryWrapper[I query.Input, R query.Result] struct {
	next query.Query[I, R]
}

func NewValidationQueryWrapper[I query.Input, R query.Result]() query.WrapFunc[I, R] {
	return func(next query.Query[I, R]) query.Query[I, R] {
		return &ValidationQueryWrapper[I, R]{next: next}
	}
}

func (q *ValidationQueryWrapper[I, R]) Execute(ctx context.Context, input I) (R, error) {
	if err := val.ValidateSchema(input); err != nil {
		var zero R
		return zero, err
	}
	return q.next.Execute(ctx, input)
}
