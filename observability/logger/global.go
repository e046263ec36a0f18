package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

//nolint:gochecknoglobals // process-wide logger used by packages that have none injected
var (
	global  atomic.Pointer[Logger]
	setOnce sync.Once

	fallback = sync.OnceValue(func() Logger {
		l, err := newLogger(Config{Level: levelDebug, Encoding: encPretty})
		if err != nil {
			panic("[logger]: failed to initialize default logger: " + err.Error())
		}
		return l
	})
)

// SetGlobal configures the logger returned by the package-level functions.
// It must be called once, at startup. Until then a debug level pretty logger
// is used.
func SetGlobal(cfg Config) {
	called := false
	setOnce.Do(func() {
		l, err := newLogger(cfg)
		if err != nil {
			panic("[logger]: failed to initialize global logger: " + err.Error())
		}
		global.Store(&l)
		called = true
	})
	if !called {
		panic("[logger]: SetGlobal can only be called once")
	}
}

func getGlobal() Logger {
	if l := global.Load(); l != nil {
		return *l
	}
	return fallback()
}

func Debug(msg any) { getGlobal().Debug(msg) }
func Info(msg any)  { getGlobal().Info(msg) }
func Warn(msg any)  { getGlobal().Warn(msg) }
func Error(msg any) { getGlobal().Error(msg) }

func Warnx(err error)  { getGlobal().Warnx(err) }
func Errorx(err error) { getGlobal().Errorx(err) }

// Fatalx logs err with its errx code and details, then exits with status 1.
func Fatalx(err error) { getGlobal().Fatalx(err) }

func With(keysAndValues ...any) Logger { return getGlobal().With(keysAndValues...) }

// WithContext returns the global logger with the request metadata of ctx attached.
func WithContext(ctx context.Context) Logger { return getGlobal().WithContext(ctx) }

// Named returns the global logger scoped to name, e.g. "repogen".
func Named(name string) Logger { return getGlobal().Named(name) }

// Sync flushes buffered entries. Call it before the process exits.
func Sync() error { return getGlobal().Sync() }
