// Package logger is the structured logger of repokit: a zap SugaredLogger behind
// a small interface, with helpers that log errx errors together with their code,
// type and details, and that attach the request metadata kept by package meta.
package logger

import (
	"context"
	"errors"
	"maps"
	"os"
	"slices"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/meta"
	"go.uber.org/zap"
)

// Logger is the logging interface passed around by repokit packages.
type Logger interface {
	Debug(msg any)
	Info(msg any)
	Warn(msg any)
	Error(msg any)
	// Fatal logs at fatal level and exits with status 1.
	Fatal(msg any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)

	// Warnx, Errorx and Fatalx log err with the code, type, trace, fields and
	// details of its errx error, if it has one.
	Warnx(err error)
	Errorx(err error)
	Fatalx(err error)

	// With returns a logger that adds the key-value pairs to every entry.
	With(keysAndValues ...any) Logger
	// WithContext returns a logger that adds the metadata found in ctx
	// (trace id, operation, service), sorted by key.
	WithContext(ctx context.Context) Logger
	// Named appends name to the logger name, dot separated.
	Named(name string) Logger

	// Sync flushes buffered entries.
	Sync() error
}

type logger struct {
	*zap.SugaredLogger
}

// New creates a Logger from cfg.
func New(cfg Config) (Logger, error) {
	return newLogger(cfg)
}

func newLogger(cfg Config) (Logger, error) {
	if cfg.Disable {
		return &logger{zap.NewNop().Sugar()}, nil
	}

	zapConfig, err := cfg.getZapConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	if zapConfig.Encoding == encPretty {
		return &logger{newPrettyLogger(zapConfig, os.Stdout).Sugar()}, nil
	}

	zl, err := zapConfig.Build()
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return &logger{zl.Sugar()}, nil
}

func (l *logger) Debug(msg any) { l.SugaredLogger.Debug(msg) }
func (l *logger) Info(msg any)  { l.SugaredLogger.Info(msg) }
func (l *logger) Warn(msg any)  { l.SugaredLogger.Warn(msg) }
func (l *logger) Error(msg any) { l.SugaredLogger.Error(msg) }
func (l *logger) Fatal(msg any) { l.SugaredLogger.Fatal(msg) }

func (l *logger) Warnx(err error)  { l.withError(err).Warn(err.Error()) }
func (l *logger) Errorx(err error) { l.withError(err).Error(err.Error()) }
func (l *logger) Fatalx(err error) { l.withError(err).Fatal(err.Error()) }

func (l *logger) withError(err error) *zap.SugaredLogger {
	var e errx.ErrorX
	if !errors.As(err, &e) {
		return l.SugaredLogger
	}
	return l.SugaredLogger.With(
		"error_code", e.Code(),
		"error_type", e.Type().String(),
		"error_trace", e.Trace(),
		"error_fields", e.Fields(),
		"error_details", e.Details(),
	)
}

func (l *logger) With(keysAndValues ...any) Logger {
	return &logger{l.SugaredLogger.With(keysAndValues...)}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}

	md := meta.ExtractMetaFromContext(ctx)
	if len(md) == 0 {
		return l
	}

	fields := make([]any, 0, 2*len(md)) //nolint:mnd // key and value
	for _, k := range slices.Sorted(maps.Keys(md)) {
		fields = append(fields, string(k), md[k])
	}
	return l.With(fields...)
}

func (l *logger) Named(name string) Logger {
	return &logger{l.SugaredLogger.Named(name)}
}
