package wrapper

import (
	"context"
	"fmt"
	"runtime"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/observability/logger"
)

// CodePanicRecovered is the error code returned when a wrapped query panics.
const CodePanicRecovered = "QUERY_PANIC_RECOVERED"

const stackTraceSize = 4096

type RecoveryQueryWrapper[I query.Input, R query.Result] struct {
	logger    logger.Logger
	next      query.Query[I, R]
	queryName string
}

func NewRecoveryQueryWrapper[I query.Input, R query.Result](
	log logger.Logger,
	queryName string,
) query.WrapFunc[I, R] {
	return func(next query.Query[I, R]) query.Query[I, R] {
		return &RecoveryQueryWrapper[I, R]{
			logger:    log.Named("cqrs.query.recovery").With("query_name", queryName),
			next:      next,
			queryName: queryName,
		}
	}
}

func (q *RecoveryQueryWrapper[I, R]) Execute(ctx context.Context, input I) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r)
			q.logger.WithContext(ctx).Errorx(err)
		}
	}()

	return q.next.Execute(ctx, input)
}

// recoveredError turns a recovered panic value into an internal errx error.
func recoveredError(r any) error {
	stackTrace := make([]byte, stackTraceSize)
	stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

	return errx.New("panic recovered in query",
		errx.WithCode(CodePanicRecovered),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"stack_trace":  string(stackTrace),
			"panic_values": fmt.Sprintf("%v", r),
		}),
	)
}
