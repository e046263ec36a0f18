package main

import (
	"time"

	"github.com/rise-and-shine/repokit/observability/alert"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/rise-and-shine/repokit/observability/tracing"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/rise-and-shine/repokit/pg"
)

type config struct {
	Service struct {
		Name    string `yaml:"name"    default:"catalogdemo"`
		Version string `yaml:"version" default:"dev"`
	} `yaml:"service"`

	Logger  logger.Config  `yaml:"logger"`
	Tracing tracing.Config `yaml:"tracing"`
	Alert   alert.Config   `yaml:"alert"`

	// Postgres is used when set, SQLite otherwise.
	Postgres *pg.Config     `yaml:"postgres"`
	SQLite   pg.SQLiteConfig `yaml:"sqlite"`

	Pagination   pagination.Config `yaml:"pagination"`
	QueryTimeout time.Duration     `yaml:"query_timeout" default:"5s"`
}
