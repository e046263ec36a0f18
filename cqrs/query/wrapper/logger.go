package wrapper

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/observability/logger"
)

// LoggerQueryWrapper logs one line per execution: the input, the time taken
// and, on failure, the error. Panics in the wrapped query are turned into errors
// so that they are logged too.
type LoggerQueryWrapper[I query.Input, R query.Result] struct {
	logger    logger.Logger
	next      query.Query[I, R]
	queryName string
}

func NewLoggerQueryWrapper[I query.Input, R query.Result](
	log logger.Logger,
	queryName string,
) query.WrapFunc[I, R] {
	return func(next query.Query[I, R]) query.Query[I, R] {
		return &LoggerQueryWrapper[I, R]{
			logger:    log.Named("cqrs.query.logger"),
			next:      next,
			queryName: queryName,
		}
	}
}

func (q *LoggerQueryWrapper[I, R]) Execute(ctx context.Context, input I) (R, error) {
	start := time.Now()

	result, err := executeWithRecovery(ctx, q.next, input)

	log := q.logger.
		WithContext(ctx).
		With("query_name", q.queryName).
		With("execution_time", time.Since(start).String()).
		With("input", input)

	if err != nil {
		e := errx.AsErrorX(err)
		log.With("error", map[string]any{
			"code":    e.Code(),
			"message": e.Error(),
			"type":    e.Type().String(),
			"trace":   e.Trace(),
			"fields":  e.Fields(),
			"details": e.Details(),
		}).Error("query failed")
	} else {
		log.Info("query executed")
	}

	return result, err
}

func executeWithRecovery[I query.Input, R query.Result](
	ctx context.Context,
	next query.Query[I, R],
	input I,
) (_ R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r)
		}
	}()

	return next.Execute(ctx, input)
}
