// Package softdel decides, per entity type, whether a delete removes the row or
// only marks it as deleted.
//
// The decision is made once, when a Strategy is built for the repository, and
// every delete path of the repository consults it:
//
//	products := repogen.NewPgRepoBuilder[Product, int64](db, reg).
//		WithSoftDelete(softdel.Soft[Product]()).
//		Build()
package softdel

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	// DefaultFlagColumn is the boolean column set when a row is soft deleted.
	DefaultFlagColumn = "is_deleted"
	// DefaultTimestampColumn is the column that records when a row was soft deleted.
	DefaultTimestampColumn = "deleted_at"
)

// Marker is implemented by entities that support soft deletion.
type Marker interface {
	MarkDeleted(at time.Time)
	IsDeleted() bool
}

// Restorer is implemented by soft deletable entities that can be un-deleted.
type Restorer interface {
	Restore()
}

// Strategy is the delete behaviour of one entity type.
type Strategy[E any] interface {
	// TryMarkDeleted marks e as deleted and returns true when the strategy is soft.
	// The caller must then persist e with an UPDATE of Columns instead of deleting it.
	TryMarkDeleted(e *E) bool
	// TryRestore clears the deleted mark and returns true when that is supported.
	TryRestore(e *E) bool
	// IsDeleted reports whether e is currently marked as deleted.
	IsDeleted(e *E) bool
	// Scope restricts q to rows that are not deleted. Hard strategies return q unchanged.
	Scope(q bun.QueryBuilder) bun.QueryBuilder
	// Columns lists the columns written by a soft delete or restore.
	Columns() []string
	// IsSoft reports whether the strategy keeps deleted rows.
	IsSoft() bool
}

// Hard returns the strategy that physically deletes rows.
func Hard[E any]() Strategy[E] {
	return hard[E]{}
}

type hard[E any] struct{}

func (hard[E]) TryMarkDeleted(*E) bool { return false }
func (hard[E]) TryRestore(*E) bool { return false }
func (hard[E]) IsDeleted(*E) bool { return false }
func (hard[E]) Scope(q bun.QueryBuilder) bun.QueryBuilder { return q }
func (hard[E]) Columns() []string { return nil }
func (hard[E]) IsSoft() bool { return false }

// Option configures a soft strategy.
type Option func(*options)

type options struct {
	flagColumn      string
	timestampColumn string
	clock           func() time.Time
}

// WithFlagColumn overrides the boolean deleted column. An empty name makes the
// strategy rely on the timestamp column alone (deleted rows have a non-NULL timestamp).
func WithFlagColumn(column string) Option {
	return func(o *options) {
		o.flagColumn = column
	}
}

// WithTimestampColumn overrides the deleted-at column.
func WithTimestampColumn(column string) Option {
	return func(o *options) {
		o.timestampColumn = column
	}
}

// WithClock replaces time.Now as the source of deletion timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// Soft returns the strategy that marks rows of E as deleted. PE is inferred:
//
//	softdel.Soft[Product]()
func Soft[E any, PE interface {
	*E
	Marker
}](opts ...Option) Strategy[E] {
	return newSoft(
		func(e *E) Marker { return PE(e) },
		opts...,
	)
}

// Auto returns Soft when *E implements Marker and Hard otherwise.
func Auto[E any](opts ...Option) Strategy[E] {
	if _, ok := any((*E)(nil)).(Marker); !ok {
		return Hard[E]()
	}
	return newSoft(
		func(e *E) Marker { return any(e).(Marker) }, //nolint:forcetypeassert // checked above
		opts...,
	)
}

type soft[E any] struct {
	options

	marker func(*E) Marker
}

func newSoft[E any](marker func(*E) Marker, opts ...Option) *soft[E] {
	o := options{
		flagColumn:      DefaultFlagColumn,
		timestampColumn: DefaultTimestampColumn,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.flagColumn == "" && o.timestampColumn == "" {
		o.timestampColumn = DefaultTimestampColumn
	}
	return &soft[E]{options: o, marker: marker}
}

func (s *soft[E]) TryMarkDeleted(e *E) bool {
	s.marker(e).MarkDeleted(s.clock())
	return true
}

func (s *soft[E]) TryRestore(e *E) bool {
	r, ok := any(e).(Restorer)
	if !ok {
		return false
	}
	r.Restore()
	return true
}

func (s *soft[E]) IsDeleted(e *E) bool {
	return s.marker(e).IsDeleted()
}

func (s *soft[E]) Scope(q bun.QueryBuilder) bun.QueryBuilder {
	if s.flagColumn != "" {
		return q.Where("?TableAlias.? = ?", bun.Ident(s.flagColumn), false)
	}
	return q.Where("?TableAlias.? IS NULL", bun.Ident(s.timestampColumn))
}

func (s *soft[E]) Columns() []string {
	cols := make([]string, 0, 2) //nolint:mnd // flag and timestamp
	if s.flagColumn != "" {
		cols = append(cols, s.flagColumn)
	}
	if s.timestampColumn != "" {
		cols = append(cols, s.timestampColumn)
	}
	return cols
}

func (s *soft[E]) IsSoft() bool {
	return true
}
