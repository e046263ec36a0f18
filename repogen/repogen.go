// Package repogen provides the generic repository every CRUD module is built on.
//
// A repository is instantiated per entity type E with its primary key type K.
// Reads go straight to the store. Writes are staged in the repository's unit of
// work and reach the store when SaveChanges is called, atomically and in order.
package repogen

import (
	"context"

	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/uow"
	"github.com/uptrace/bun"
)

// Error codes returned by repositories, next to entitykey.CodeInvalidArgument
// for arguments rejected before any I/O.
const (
	// CodeRepositoryFailure wraps every failure reported by the store.
	CodeRepositoryFailure = "REPOSITORY_FAILURE"
	// CodeMultipleRowsFound is returned by GetSingleWhere when more than one row matches.
	CodeMultipleRowsFound = "MULTIPLE_ROWS_FOUND"
	// CodeIncorrectRowsAffection is returned when an update hits fewer rows than expected.
	CodeIncorrectRowsAffection = "INCORRECT_ROWS_AFFECTION"
	// DefaultNotFoundCode is returned by GetByID, Delete and Restore for missing rows
	// unless the module sets its own code.
	DefaultNotFoundCode = "OBJECT_NOT_FOUND"
)

// ReadOnlyRepo is the read surface of a repository. It is safe to share between requests.
type ReadOnlyRepo[E any, K comparable] interface {
	// GetByID returns the entity with the given key, or a not-found error.
	GetByID(ctx context.Context, id K) (*E, error)
	// GetAll returns every entity, ordered by key.
	GetAll(ctx context.Context) ([]E, error)
	// Exists reports whether an entity with the given key exists.
	Exists(ctx context.Context, id K) (bool, error)
	// GetWhere returns the entities matching pred, ordered by key.
	GetWhere(ctx context.Context, pred entitykey.Predicate) ([]E, error)
	// GetSingleWhere returns the only entity matching pred, nil if none matches,
	// and an error if more than one does.
	GetSingleWhere(ctx context.Context, pred entitykey.Predicate) (*E, error)
	// GetFirstWhere returns the matching entity with the lowest key, or nil.
	GetFirstWhere(ctx context.Context, pred entitykey.Predicate) (*E, error)
	// Count counts the entities matching all preds, or every entity without preds.
	Count(ctx context.Context, preds ...entitykey.Predicate) (int64, error)
	// Any reports whether at least one entity matches pred.
	Any(ctx context.Context, pred entitykey.Predicate) (bool, error)
	// BaseQuery returns the default SELECT over E that list queries start from.
	BaseQuery() *bun.SelectQuery
}

// Repo is the full repository surface. A Repo with staged changes belongs to one unit of work.
type Repo[E any, K comparable] interface {
	ReadOnlyRepo[E, K]

	// Add stages an insert.
	Add(ctx context.Context, entity *E) error
	// Update stages an update of every column of entity.
	Update(ctx context.Context, entity *E) error
	// Delete loads the entity with the given key and stages its soft or hard deletion.
	Delete(ctx context.Context, id K) error
	// Restore stages the un-deletion of a soft deleted entity.
	Restore(ctx context.Context, id K) error

	// AddRange stages the insert of all entities in one statement.
	AddRange(ctx context.Context, entities []E) error
	// UpdateRange stages the update of all entities.
	UpdateRange(ctx context.Context, entities []E) error
	// DeleteRange stages the deletion of the entities with the given keys and
	// returns how many rows it will affect.
	DeleteRange(ctx context.Context, ids []K) (int64, error)
	// DeleteWhere stages the deletion of the entities matching pred and returns
	// how many rows it will affect.
	DeleteWhere(ctx context.Context, pred entitykey.Predicate) (int64, error)

	// SaveChanges flushes the staged changes and returns the number of rows affected.
	SaveChanges(ctx context.Context) (int64, error)
	// Pending returns the number of staged changes.
	Pending() int
	// Discard drops the staged changes.
	Discard()

	// BeginTransaction starts a transaction the repository uses until it finishes.
	BeginTransaction(ctx context.Context) (*uow.Tx, error)
}

var _ Repo[struct{}, int64] = (*PgRepo[struct{}, int64])(nil)
