package alert

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/code19m/errx"
)

//nolint:gochecknoglobals // Global variables are required for the global alert singleton pattern
var (
	global  atomic.Pointer[Provider]
	setOnce sync.Once
)

// SetGlobal installs the provider used by SendError. It can be called once.
func SetGlobal(cfg Config) error {
	err := errors.New("[alert]: SetGlobal can only be called once")

	setOnce.Do(func() {
		var provider Provider
		provider, err = NewProvider(cfg)
		if err != nil {
			err = errx.Wrap(err)
			return
		}
		global.Store(&provider)
	})

	return err
}

// Global returns the provider installed by SetGlobal, or a no-op provider.
func Global() Provider {
	if p := global.Load(); p != nil {
		return *p
	}
	return noOpProvider{}
}

// SendError sends an alert through the global provider.
func SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error {
	return Global().SendError(ctx, errCode, msg, operation, details)
}
