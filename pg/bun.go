// Package pg opens bun databases for the repository layer and inspects the
// errors they return.
//
// PostgreSQL (pgx pool + pgdialect) is the production store. An SQLite store
// (sqliteshim + sqlitedialect) is available for local runs and tests; both go
// through the same query hooks.
package pg

import (
	"database/sql"
	"time"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rise-and-shine/repokit/pg/hooks"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/extra/bunotel"
)

// NewBunDB opens a PostgreSQL database through a pgx pool.
func NewBunDB(cfg Config) (*bun.DB, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	sqldb := stdlib.OpenDBFromPool(pool)

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	applyHooks(bunDB, cfg.Debug, cfg.SlowQueryThreshold)

	return bunDB, nil
}

// NewSQLiteDB opens an SQLite database. In-memory databases are limited to a
// single connection so every query sees the same data.
func NewSQLiteDB(cfg SQLiteConfig) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.dsn())
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"dsn": cfg.dsn()}))
	}
	if cfg.InMemory {
		sqldb.SetMaxOpenConns(1)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if cfg.Debug {
		bunDB.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	applyHooks(bunDB, false, cfg.SlowQueryThreshold)

	return bunDB, nil
}

// applyHooks installs the logging hook (failures and slow queries always,
// every query when debug is set) and the OpenTelemetry hook.
func applyHooks(db *bun.DB, debug bool, slowQueryThreshold time.Duration) {
	db.AddQueryHook(hooks.NewQueryLogHook(nil, debug, slowQueryThreshold))

	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithFormattedQueries(true)))
}
