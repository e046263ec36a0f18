package wrapper

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/meta"
	"github.com/rise-and-shine/repokit/observability/alert"
	"github.com/rise-and-shine/repokit/observability/logger"
)

const alertTimeout = 3 * time.Second

// AlertQueryWrapper reports internal failures of the wrapped query to an alert
// provider. Validation, not-found and other client errors are not reported.
// The alert is sent in the background and the error is returned unchanged.
type AlertQueryWrapper[I query.Input, R query.Result] struct {
	logger    logger.Logger
	provider  alert.Provider
	next      query.Query[I, R]
	queryName string
}

func NewAlertQueryWrapper[I query.Input, R query.Result](
	log logger.Logger,
	provider alert.Provider,
	queryName string,
) query.WrapFunc[I, R] {
	return func(next query.Query[I, R]) query.Query[I, R] {
		return &AlertQueryWrapper[I, R]{
			logger:    log.Named("cqrs.query.alerting"),
			provider:  provider,
			next:      next,
			queryName: queryName,
		}
	}
}

func (q *AlertQueryWrapper[I, R]) Execute(ctx context.Context, input I) (R, error) {
	result, err := q.next.Execute(ctx, input)
	if err == nil || errx.GetType(err) != errx.T_Internal {
		return result, err
	}

	details := make(map[string]string)
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		details[string(k)] = v
	}

	code := errx.AsErrorX(err).Code()
	msg := err.Error()
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)

	go func() {
		defer cancel()

		if sendErr := q.provider.SendError(alertCtx, code, msg, "query: "+q.queryName, details); sendErr != nil {
			q.logger.WithContext(alertCtx).With("alert_send_error", sendErr.Error()).Warn("failed to send error alert")
		}
	}()

	return result, err
}
