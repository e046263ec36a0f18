package wrapper

import (
	"context"

	"github.com/rise-and-shine/repokit/cqrs/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const queryTracerName = "cqrs/query"

// NewTracingQueryWrapper runs every execution inside its own span. The span is
// named spanName, or after the wrapped handler's type when spanName is empty,
// and is marked as failed when the handler returns an error.
//
//	traced := wrapper.NewTracingQueryWrapper[*ListProducts, Page]("ListProducts")(listProducts)
func NewTracingQueryWrapper[I query.Input, R query.Result](spanName string) query.WrapFunc[I, R] {
	return func(next query.Query[I, R]) query.Query[I, R] {
		name := spanName
		if name == "" {
			name = nameOf(next)
		}
		tracer := otel.Tracer(queryTracerName)

		return query.Func[I, R](func(ctx context.Context, input I) (R, error) {
			ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("query.name", name)))
			defer span.End()

			res, err := next.Execute(ctx, input)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return res, err
		})
	}
}
