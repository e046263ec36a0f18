// Package pagedquery runs the list queries of CRUD modules.
//
// Every list endpoint follows the same steps: normalize the paging params, start
// from the base query, apply the module's business filters, apply the search when
// the request has search criteria, count the filtered rows, sort, read one page
// and project it. Modules only supply the steps that differ.
//
//	pipeline, err := pagedquery.NewBuilder[*ListProducts, Product, ProductView](repo, toView).
//		WithBusinessFilters(filterByCategory).
//		WithSearch(nil, searchByName).
//		WithSortMap(productSorts).
//		Build()
//
//	page, err := pipeline.Execute(ctx, &ListProducts{QueryParams: params})
package pagedquery

import (
	"context"
	"strings"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/uptrace/bun"
)

// Params is the request of a list query. Modules embed pagination.QueryParams
// in their request struct and pass a pointer to it.
type Params interface {
	Paging() *pagination.QueryParams
}

// Source provides the default base query. repogen repositories are sources.
type Source interface {
	BaseQuery() *bun.SelectQuery
}

type (
	// BaseQueryFunc returns the query the pipeline starts from.
	BaseQueryFunc[P Params] func(ctx context.Context, params P) *bun.SelectQuery
	// QueryFunc narrows or orders q for params.
	QueryFunc[P Params] func(q *bun.SelectQuery, params P) *bun.SelectQuery
	// SearchCheckFunc reports whether params carry search criteria.
	SearchCheckFunc[P Params] func(params P) bool
	// ProjectFunc converts a loaded entity to the response item.
	ProjectFunc[E, O any] func(entity E) O
)

// Pipeline is a configured list query. It is safe for concurrent use.
type Pipeline[P Params, E, O any] struct {
	baseQuery   BaseQueryFunc[P]
	filters     []QueryFunc[P]
	hasSearch   SearchCheckFunc[P]
	search      QueryFunc[P]
	sort        QueryFunc[P]
	project     ProjectFunc[E, O]
	pagingLimit pagination.Config

	name string
}

var _ query.Query[*pagination.QueryParams, pagination.Response[struct{}]] = (*Pipeline[*pagination.QueryParams, struct{}, struct{}])(nil)

// HasSearchTerm is the default search check: the request has a non-blank search term.
func HasSearchTerm[P Params](params P) bool {
	return strings.TrimSpace(params.Paging().SearchTerm) != ""
}

// Execute runs the pipeline. The paging params of params are normalized in place,
// so later steps and the response see the effective page number and size.
func (p *Pipeline[P, E, O]) Execute(ctx context.Context, params P) (_ pagination.Response[O], err error) {
	ctx, span := startSpan(ctx, p.name)
	defer func() { endSpan(span, err) }()

	paging := params.Paging()
	if paging == nil {
		return pagination.Response[O]{}, errx.New(
			"[pagedquery]: params carry no paging",
			errx.WithCode(entitykey.CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"pipeline": p.name}),
		)
	}
	paging.Normalize(p.pagingLimit)
	annotate(span, paging)

	q := p.baseQuery(ctx, params)
	for _, filter := range p.filters {
		q = filter(q, params)
	}
	if p.search != nil && p.hasSearch(params) {
		q = p.search(q, params)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return pagination.Response[O]{}, p.storeError(ctx, "count", err, q)
	}

	entities := make([]E, 0, paging.Limit())
	if total > paging.Offset() {
		q = p.sort(q, params).
			Offset(paging.Offset()).
			Limit(paging.Limit())

		if err = q.Scan(ctx, &entities); err != nil {
			return pagination.Response[O]{}, p.storeError(ctx, "scan", err, q)
		}
	}

	page := pagination.NewResponse(entities, int64(total), *paging)
	return pagination.MapResponse[E, O](page, p.project), nil
}
