// Command catalogdemo seeds a small product catalog and runs a few paged
// listings against it through the query wrappers.
//
// The configuration is read from $CONFIG_DIR/$ENVIRONMENT.yaml (./config by default):
//
//	ENVIRONMENT=local go run ./cmd/catalogdemo
package main

import (
	"cmp"
	"context"
	"os"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/cfgloader"
	"github.com/rise-and-shine/repokit/meta"
	"github.com/rise-and-shine/repokit/observability/alert"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/rise-and-shine/repokit/observability/tracing"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/rise-and-shine/repokit/pg"
	"github.com/uptrace/bun"
)

const listProductsName = "ListProducts"

func main() {
	cfg := cfgloader.MustLoad[config](cfgloader.WithConfigDir(cmp.Or(os.Getenv("CONFIG_DIR"), "./config")))

	meta.SetServiceInfo(cfg.Service.Name, cfg.Service.Version)
	logger.SetGlobal(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	shutdown, err := tracing.InitGlobalTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalx(err)
	}
	defer func() {
		if err := shutdown(); err != nil {
			logger.Warnx(err)
		}
	}()

	if err = alert.SetGlobal(cfg.Alert); err != nil {
		logger.Fatalx(err)
	}

	if err = run(context.Background(), cfg); err != nil {
		logger.Errorx(err)
	}
}

func run(ctx context.Context, cfg config) error {
	db, err := openDB(cfg)
	if err != nil {
		return errx.Wrap(err)
	}
	defer db.Close()

	if err = createSchema(ctx, db); err != nil {
		return errx.Wrap(err)
	}

	repo, err := newProductRepo(db)
	if err != nil {
		return errx.Wrap(err)
	}

	tx, err := repo.BeginTransaction(ctx)
	if err != nil {
		return errx.Wrap(err)
	}
	defer func() { _ = tx.Close(ctx) }()

	if err = seed(ctx, repo); err != nil {
		return errx.Wrap(err)
	}
	if err = tx.Commit(ctx); err != nil {
		return errx.Wrap(err)
	}

	pipeline, err := newListProducts(repo, cfg.Pagination)
	if err != nil {
		return errx.Wrap(err)
	}

	log := logger.Named("catalogdemo")
	list := wrapListProducts(pipeline, log, alert.Global(), cfg.QueryTimeout)

	requests := []*listProducts{
		{},
		{QueryParams: pagination.QueryParams{PageNumber: 2, SortBy: "price", IsAscending: true}},
		{Category: "lamps", QueryParams: pagination.QueryParams{SortBy: "name", PageSize: 500}},
		{MaxPrice: 3000, QueryParams: pagination.QueryParams{SearchTerm: "desks"}},
		{Category: "sofas"},
	}

	for _, req := range requests {
		page, err := list.Execute(ctx, req)
		if err != nil {
			// Already logged by the logger wrapper.
			continue
		}

		log.With(
			"page", page.PageNumber,
			"page_count", page.PageCount,
			"total", page.TotalCount,
			"items", page.PageContent,
		).Info("products listed")
	}

	return nil
}

func openDB(cfg config) (*bun.DB, error) {
	if cfg.Postgres != nil {
		return pg.NewBunDB(*cfg.Postgres)
	}
	return pg.NewSQLiteDB(cfg.SQLite)
}
