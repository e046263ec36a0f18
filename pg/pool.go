package pg

import (
	"context"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a pgx pool and checks that the server answers within
// cfg.ConnectTimeout. The pool is closed again when the check fails.
func NewPool(cfg Config) (*pgxpool.Pool, error) {
	details := errx.D{"host": cfg.Host, "database": cfg.Database}

	poolConfig, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(details))
	}

	poolConfig.MaxConns = cfg.PoolMaxConns
	poolConfig.MinConns = min(cfg.PoolMinConns, cfg.PoolMaxConns)
	poolConfig.MaxConnIdleTime = cfg.PoolMaxConnIdleTime
	poolConfig.MaxConnLifetime = cfg.PoolMaxConnLifetime

	ctx := context.Background()
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(details))
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errx.Wrap(err, errx.WithDetails(details))
	}

	return pool, nil
}
