// Package hooks contains bun query hooks shared by every database opened through pg.
package hooks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/uptrace/bun"
)

var _ bun.QueryHook = (*QueryLogHook)(nil)

type verdict int

const (
	skip verdict = iota
	routine
	noRows
	slow
	failed
)

// QueryLogHook logs failed queries at error level, and empty results and slow
// queries at warn level. In verbose mode every other query is logged at debug level.
type QueryLogHook struct {
	verbose   bool
	threshold time.Duration
	log       logger.Logger
}

// NewQueryLogHook creates a hook. A zero threshold turns slow query detection
// off; a nil log means the global logger named "pg".
func NewQueryLogHook(log logger.Logger, verbose bool, threshold time.Duration) *QueryLogHook {
	return &QueryLogHook{verbose: verbose, threshold: threshold, log: log}
}

func (h *QueryLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	took := time.Since(event.StartTime)

	v := h.judge(event.Err, took)
	if v == skip {
		return
	}

	log := h.log
	if log == nil {
		log = logger.Named("pg")
	}
	log = log.WithContext(ctx).With(
		"query", strings.ReplaceAll(event.Query, `"`, ""),
		"duration", took.Round(time.Microsecond),
	)
	if len(event.QueryArgs) > 0 {
		log = log.With("args", event.QueryArgs)
	}

	msg := "sql " + event.Operation()
	switch v {
	case failed:
		log.With("error", event.Err).Error(msg)
	case noRows:
		log.With("error", event.Err).Warn(msg)
	case slow:
		log.With("slow_query_threshold", h.threshold).Warn(msg)
	case routine, skip:
		log.Debug(msg)
	}
}

func (h *QueryLogHook) judge(err error, took time.Duration) verdict {
	switch {
	// ErrTxDone comes from rolling back a transaction that already finished.
	case err != nil && !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, sql.ErrTxDone):
		return failed
	case errors.Is(err, sql.ErrNoRows):
		return noRows
	case h.threshold > 0 && took >= h.threshold:
		return slow
	case h.verbose:
		return routine
	default:
		return skip
	}
}
