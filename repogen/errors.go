package repogen

import (
	"context"
	"fmt"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/rise-and-shine/repokit/pg"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// largeBulkSize is the batch size above which the query text is left out of error details.
const largeBulkSize = 10

func (r *PgRepo[E, K]) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "repogen."+operation, trace.WithAttributes(
		attribute.String("repogen.entity", r.desc.EntityName),
		attribute.String("repogen.operation", operation),
	))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storeError wraps a failure reported by the store. Unique violations whose
// constraint is mapped by the module become conflict errors with the mapped
// code; everything else becomes REPOSITORY_FAILURE. The error is logged before
// it is returned.
func (r *PgRepo[E, K]) storeError(ctx context.Context, operation string, err error, q fmt.Stringer) error {
	details := pg.GetPgErrorDetails(err, q)
	details["entity"] = r.desc.EntityName
	details["operation"] = operation

	var wrapped error
	if code, ok := r.conflictCodes[pg.ConstraintName(err)]; ok && pg.IsConflict(err) {
		wrapped = errx.New(
			fmt.Sprintf("%s: %s conflicts with an existing row", operation, r.desc.EntityName),
			errx.WithCode(code),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(details),
		)
	} else {
		wrapped = errx.Wrap(err,
			errx.WithCode(CodeRepositoryFailure),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(details),
		)
	}

	logger.Named("repogen").
		WithContext(ctx).
		With("entity", r.desc.EntityName, "operation", operation).
		Errorx(wrapped)

	return wrapped
}

func (r *PgRepo[E, K]) notFound(operation string, id K) error {
	return errx.New(
		fmt.Sprintf("%s not found", r.desc.EntityName),
		errx.WithCode(r.notFoundCode),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{
			"entity":    r.desc.EntityName,
			"operation": operation,
			"id":        fmt.Sprintf("%v", id),
		}),
	)
}

func (r *PgRepo[E, K]) invalidArgument(operation, msg string) error {
	return errx.New(
		fmt.Sprintf("%s: %s", operation, msg),
		errx.WithCode(entitykey.CodeInvalidArgument),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"entity": r.desc.EntityName, "operation": operation}),
	)
}

func (r *PgRepo[E, K]) validateKey(operation string, id K) error {
	if err := entitykey.ValidateKey(id); err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"entity": r.desc.EntityName, "operation": operation}))
	}
	return nil
}
