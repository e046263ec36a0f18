package pagedquery

import (
	"context"
	"fmt"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/rise-and-shine/repokit/sorter"
	"github.com/uptrace/bun"
)

// Builder configures a Pipeline. Only the projection is required; every other
// step has a default.
type Builder[P Params, E, O any] struct {
	source      Source
	project     ProjectFunc[E, O]
	baseQuery   BaseQueryFunc[P]
	filters     []QueryFunc[P]
	hasSearch   SearchCheckFunc[P]
	search      QueryFunc[P]
	sort        QueryFunc[P]
	sortMap     *sorter.SortMap
	pagingLimit pagination.Config
	name        string
}

// NewBuilder starts a pipeline reading E from source and returning project(E).
// source may be nil when WithBaseQuery is set.
func NewBuilder[P Params, E, O any](source Source, project ProjectFunc[E, O]) *Builder[P, E, O] {
	return &Builder[P, E, O]{
		source:      source,
		project:     project,
		pagingLimit: pagination.DefaultConfig(),
		name:        fmt.Sprintf("%T", *new(E)),
	}
}

// WithName sets the name used in spans and logs. It defaults to the entity type.
func (b *Builder[P, E, O]) WithName(name string) *Builder[P, E, O] {
	b.name = name
	return b
}

// WithBaseQuery replaces the source's base query.
func (b *Builder[P, E, O]) WithBaseQuery(fn BaseQueryFunc[P]) *Builder[P, E, O] {
	b.baseQuery = fn
	return b
}

// WithBusinessFilters appends filters applied to every run, in order.
func (b *Builder[P, E, O]) WithBusinessFilters(filters ...QueryFunc[P]) *Builder[P, E, O] {
	b.filters = append(b.filters, filters...)
	return b
}

// WithSearch sets the search step. A nil check defaults to HasSearchTerm.
func (b *Builder[P, E, O]) WithSearch(check SearchCheckFunc[P], search QueryFunc[P]) *Builder[P, E, O] {
	b.hasSearch = check
	b.search = search
	return b
}

// WithSortMap orders results by the requested sort key through m.
func (b *Builder[P, E, O]) WithSortMap(m *sorter.SortMap) *Builder[P, E, O] {
	b.sortMap = m
	return b
}

// WithSort replaces the sort step entirely.
func (b *Builder[P, E, O]) WithSort(fn QueryFunc[P]) *Builder[P, E, O] {
	b.sort = fn
	return b
}

// WithPaging sets the default and maximum page sizes.
func (b *Builder[P, E, O]) WithPaging(cfg pagination.Config) *Builder[P, E, O] {
	b.pagingLimit = cfg
	return b
}

// Build checks the configuration and fills in the defaults.
func (b *Builder[P, E, O]) Build() (*Pipeline[P, E, O], error) {
	if b.project == nil {
		return nil, b.invalid("projection is required")
	}

	baseQuery := b.baseQuery
	if baseQuery == nil {
		if b.source == nil {
			return nil, b.invalid("either a source or a base query is required")
		}
		source := b.source
		baseQuery = func(context.Context, P) *bun.SelectQuery { return source.BaseQuery() }
	}

	hasSearch := b.hasSearch
	if hasSearch == nil {
		hasSearch = HasSearchTerm[P]
	}

	sort := b.sort
	if sort == nil {
		sortMap := b.sortMap
		if sortMap == nil {
			sortMap = b.defaultSortMap()
		}
		sort = func(q *bun.SelectQuery, params P) *bun.SelectQuery {
			paging := params.Paging()
			return sortMap.Apply(q, paging.SortBy, paging.IsAscending)
		}
	}

	return &Pipeline[P, E, O]{
		baseQuery:   baseQuery,
		filters:     append([]QueryFunc[P](nil), b.filters...),
		hasSearch:   hasSearch,
		search:      b.search,
		sort:        sort,
		project:     b.project,
		pagingLimit: b.pagingLimit,
		name:        b.name,
	}, nil
}

// defaultSortMap orders by the primary key when the source describes it, and
// leaves the order to the store otherwise.
func (b *Builder[P, E, O]) defaultSortMap() *sorter.SortMap {
	if d, ok := b.source.(interface{ Descriptor() entitykey.Descriptor }); ok {
		return sorter.NewSortMap(sorter.Column(d.Descriptor().KeyColumn), nil)
	}
	return sorter.NewSortMap(sorter.Expr("1"), nil)
}

func (b *Builder[P, E, O]) invalid(msg string) error {
	return errx.New(
		"[pagedquery]: "+msg,
		errx.WithCode(entitykey.CodeInvalidArgument),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"pipeline": b.name}),
	)
}
