package pg

import (
	"fmt"
	"net/url"
	"time"
)

// Config defines the configuration options for PostgreSQL connections.
type Config struct {
	// Debug logs every SQL query when set to true.
	Debug bool `yaml:"debug" default:"false"`
	// SlowQueryThreshold makes queries slower than it log at warn level. Zero disables it.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" default:"200ms"`

	Host     string `yaml:"host"     validate:"required"`
	Port     int    `yaml:"port"     validate:"required"`
	User     string `yaml:"user"     validate:"required"`
	Password string `yaml:"password" validate:"required" mask:"true"`
	Database string `yaml:"database" validate:"required"`

	// SSLMode valid values: disable, allow, prefer, require, verify-ca, verify-full.
	SSLMode        string        `yaml:"sslmode"         default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	SearchPath     string        `yaml:"search_path"     default:"public"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`

	PoolMaxConns        int32         `yaml:"pool_max_conns"          default:"4"`
	PoolMinConns        int32         `yaml:"pool_min_conns"          default:"1"`
	PoolMaxConnLifetime time.Duration `yaml:"pool_max_conn_lifetime"  default:"1h"`
	PoolMaxConnIdleTime time.Duration `yaml:"pool_max_conn_idle_time" default:"30m"`
}

func (c Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s connect_timeout=%d",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
		c.SearchPath,
		int(c.ConnectTimeout.Seconds()),
	)
}

// SQLiteConfig configures an SQLite database.
type SQLiteConfig struct {
	// Name is the database file path, or the shared cache name when InMemory is set.
	Name string `yaml:"name" default:"repokit" validate:"required"`
	// InMemory keeps the database in memory for the lifetime of the process.
	InMemory bool `yaml:"in_memory" default:"false"`
	// Debug prints every query through bundebug.
	Debug              bool          `yaml:"debug"                default:"false"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" default:"0s"`
}

func (c SQLiteConfig) dsn() string {
	if c.InMemory {
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(c.Name))
	}
	return fmt.Sprintf("file:%s?cache=shared", c.Name)
}
