package repogen

import (
	"maps"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/softdel"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

// PgRepoBuilder builds a PgRepo with sensible defaults: no schema qualification,
// OBJECT_NOT_FOUND for missing rows, and soft deletion when *E implements softdel.Marker.
type PgRepoBuilder[E any, K comparable] struct {
	db            bun.IDB
	registry      *entitykey.Registry
	schemaName    string
	notFoundCode  string
	conflictCodes map[string]string
	strategy      softdel.Strategy[E]
}

// NewPgRepoBuilder starts a builder for entity E keyed by K. E must be registered in reg.
func NewPgRepoBuilder[E any, K comparable](db bun.IDB, reg *entitykey.Registry) *PgRepoBuilder[E, K] {
	return &PgRepoBuilder[E, K]{
		db:            db,
		registry:      reg,
		notFoundCode:  DefaultNotFoundCode,
		conflictCodes: map[string]string{},
	}
}

// WithSchemaName qualifies every table reference with schema name, e.g. "catalog".
func (b *PgRepoBuilder[E, K]) WithSchemaName(name string) *PgRepoBuilder[E, K] {
	b.schemaName = name
	return b
}

// WithNotFoundCode sets the error code for missing rows.
func (b *PgRepoBuilder[E, K]) WithNotFoundCode(code string) *PgRepoBuilder[E, K] {
	b.notFoundCode = code
	return b
}

// WithConflictCodes maps unique constraint names to error codes,
// e.g. map["products_sku_key"] = "SKU_ALREADY_EXISTS".
func (b *PgRepoBuilder[E, K]) WithConflictCodes(codes map[string]string) *PgRepoBuilder[E, K] {
	maps.Copy(b.conflictCodes, codes)
	return b
}

// WithSoftDelete sets the delete strategy.
func (b *PgRepoBuilder[E, K]) WithSoftDelete(strategy softdel.Strategy[E]) *PgRepoBuilder[E, K] {
	b.strategy = strategy
	return b
}

// Build resolves the key of E and creates the repository.
func (b *PgRepoBuilder[E, K]) Build() (*PgRepo[E, K], error) {
	if b.db == nil {
		return nil, errx.New(
			"[repogen]: db is required",
			errx.WithCode(entitykey.CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
		)
	}

	desc, err := entitykey.ForKey[E, K](b.registry)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	strategy := b.strategy
	if strategy == nil {
		strategy = softdel.Auto[E]()
	}

	return &PgRepo[E, K]{
		db:            b.db,
		desc:          desc,
		strategy:      strategy,
		schemaName:    b.schemaName,
		notFoundCode:  b.notFoundCode,
		conflictCodes: maps.Clone(b.conflictCodes),
		tracer:        otel.Tracer("repogen"),
		work:          &unitOfWork{},
	}, nil
}
