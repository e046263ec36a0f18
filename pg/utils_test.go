package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rise-and-shine/repokit/pg"
	"github.com/stretchr/testify/assert"
)

type panickyQuery struct{}

func (panickyQuery) String() string { panic("model is nil") }

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		conflict   bool
		constraint string
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("connection reset")},
		{
			name:       "postgres unique violation",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"}),
			conflict:   true,
			constraint: "products_sku_key",
		},
		{
			name: "postgres foreign key violation",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "orders_product_id_fkey"},
			// constraint name is reported, but it is not a conflict
			constraint: "orders_product_id_fkey",
		},
		{
			name:       "sqlite unique violation",
			err:        errors.New("constraint failed: UNIQUE constraint failed: products.sku (2067)"),
			conflict:   true,
			constraint: "products.sku",
		},
		{
			name:       "sqlite composite unique violation",
			err:        errors.New("UNIQUE constraint failed: members.user_id, members.group_id"),
			conflict:   true,
			constraint: "members.user_id, members.group_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.conflict, pg.IsConflict(tt.err))
			assert.Equal(t, tt.constraint, pg.ConstraintName(tt.err))
		})
	}
}

func TestGetPgErrorDetails(t *testing.T) {
	t.Run("postgres error", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23505", Message: "duplicate key", TableName: "products"}
		details := pg.GetPgErrorDetails(err, nil)

		assert.Equal(t, "23505", details["pg.code"])
		assert.Equal(t, "products", details["pg.table"])
		assert.NotContains(t, details, "query")
		assert.NotContains(t, details, "pg.hint", "empty fields are left out")
	})

	t.Run("other error keeps message", func(t *testing.T) {
		details := pg.GetPgErrorDetails(errors.New("disk I/O error"), nil)
		assert.Equal(t, "disk I/O error", details["db.error"])
	})

	t.Run("panicking query is skipped", func(t *testing.T) {
		var details map[string]any
		assert.NotPanics(t, func() {
			details = pg.GetPgErrorDetails(errors.New("boom"), panickyQuery{})
		})
		assert.NotContains(t, details, "query")
	})
}
