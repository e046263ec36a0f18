package pagedquery

import (
	"context"
	"fmt"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/rise-and-shine/repokit/pg"
	"github.com/rise-and-shine/repokit/repogen"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("pagedquery").Start(ctx, "pagedquery.execute", trace.WithAttributes(
		attribute.String("pagedquery.pipeline", name),
	))
}

func annotate(span trace.Span, paging *pagination.QueryParams) {
	span.SetAttributes(
		attribute.Int("pagedquery.page_number", paging.PageNumber),
		attribute.Int("pagedquery.page_size", paging.PageSize),
		attribute.String("pagedquery.sort_by", paging.SortBy),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storeError wraps a store failure the same way repositories do.
func (p *Pipeline[P, E, O]) storeError(ctx context.Context, step string, err error, q fmt.Stringer) error {
	details := pg.GetPgErrorDetails(err, q)
	details["pipeline"] = p.name
	details["step"] = step

	wrapped := errx.Wrap(err,
		errx.WithCode(repogen.CodeRepositoryFailure),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(details),
	)

	logger.Named("pagedquery").
		WithContext(ctx).
		With("pipeline", p.name, "step", step).
		Errorx(wrapped)

	return wrapped
}
