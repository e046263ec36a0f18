package main

import (
	"context"
	"fmt"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/cqrs/query/wrapper"
	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/observability/alert"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/rise-and-shine/repokit/pagedquery"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/rise-and-shine/repokit/pg"
	"github.com/rise-and-shine/repokit/repogen"
	"github.com/rise-and-shine/repokit/sorter"
	"github.com/uptrace/bun"
)

type product struct {
	bun.BaseModel `bun:"table:products,alias:p"`
	pg.SoftDeleteModel

	ID       int64  `bun:"id,pk,autoincrement"`
	SKU      string `bun:"sku,notnull,unique"`
	Name     string `bun:"name,notnull"`
	Category string `bun:"category,notnull"`
	Price    int64  `bun:"price,notnull"`
}

type productView struct {
	ID    int64  `json:"id"`
	SKU   string `json:"sku"`
	Label string `json:"label"`
	Price string `json:"price"`
}

func toView(p product) productView {
	return productView{
		ID:    p.ID,
		SKU:   p.SKU,
		Label: p.Name,
		Price: fmt.Sprintf("%d.%02d", p.Price/100, p.Price%100),
	}
}

type listProducts struct {
	pagination.QueryParams

	Category string `json:"category" validate:"omitempty,oneof=lamps chairs desks"`
	MaxPrice int64  `json:"max_price" validate:"gte=0"`
}

type productRepo = repogen.Repo[product, int64]

func newProductRepo(db bun.IDB) (*repogen.PgRepo[product, int64], error) {
	reg, err := entitykey.NewRegistry(db.Dialect(), (*product)(nil))
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return repogen.NewPgRepoBuilder[product, int64](db, reg).
		WithNotFoundCode("PRODUCT_NOT_FOUND").
		WithConflictCodes(map[string]string{"products.sku": "SKU_ALREADY_EXISTS"}).
		Build()
}

func createSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*product)(nil)).IfNotExists().Exec(ctx)
	return errx.Wrap(err)
}

// seed fills an empty catalog and soft deletes the discontinued items.
func seed(ctx context.Context, repo productRepo) error {
	count, err := repo.Count(ctx)
	if err != nil || count > 0 {
		return errx.Wrap(err)
	}

	categories := []string{"lamps", "chairs", "desks"}
	items := make([]product, 0, 30) //nolint:mnd // demo data
	for i := range cap(items) {
		items = append(items, product{
			SKU:      fmt.Sprintf("SKU-%03d", i+1),
			Name:     fmt.Sprintf("%s %02d", categories[i%len(categories)], i+1),
			Category: categories[i%len(categories)],
			Price:    int64(1000 + (i*737)%9000), //nolint:mnd // demo data
		})
	}
	if err = repo.AddRange(ctx, items); err != nil {
		return errx.Wrap(err)
	}
	if _, err = repo.SaveChanges(ctx); err != nil {
		return errx.Wrap(err)
	}

	if _, err = repo.DeleteWhere(ctx, entitykey.Where("?TableAlias.price > ?", 9000)); err != nil { //nolint:mnd // demo data
		return errx.Wrap(err)
	}
	_, err = repo.SaveChanges(ctx)
	return errx.Wrap(err)
}

func productSorts() *sorter.SortMap {
	return sorter.NewSortMap(
		sorter.Column("id"),
		map[string]sorter.Order{
			"name":     sorter.Expr("lower(?TableAlias.name)"),
			"price":    sorter.Column("price"),
			"category": sorter.Column("category").Then(sorter.Column("price").Desc()),
		},
	).WithTieBreaker(sorter.Column("id"))
}

func byCategory(q *bun.SelectQuery, p *listProducts) *bun.SelectQuery {
	if p.Category == "" {
		return q
	}
	return q.Where("?TableAlias.category = ?", p.Category)
}

func byMaxPrice(q *bun.SelectQuery, p *listProducts) *bun.SelectQuery {
	if p.MaxPrice == 0 {
		return q
	}
	return q.Where("?TableAlias.price <= ?", p.MaxPrice)
}

func byName(q *bun.SelectQuery, p *listProducts) *bun.SelectQuery {
	return q.Where("lower(?TableAlias.name) LIKE lower(?)", "%"+p.SearchTerm+"%")
}

func newListProducts(
	repo *repogen.PgRepo[product, int64],
	limits pagination.Config,
) (*pagedquery.Pipeline[*listProducts, product, productView], error) {
	return pagedquery.NewBuilder[*listProducts](repo, toView).
		WithName("ListProducts").
		WithBusinessFilters(byCategory, byMaxPrice).
		WithSearch(nil, byName).
		WithSortMap(productSorts()).
		WithPaging(limits).
		Build()
}

type listProductsQuery = query.Query[*listProducts, pagination.Response[productView]]

// wrapListProducts puts the listing behind the query wrappers. Panics are
// recovered inside the alert wrapper and reported as internal errors.
func wrapListProducts(
	list listProductsQuery,
	log logger.Logger,
	alerts alert.Provider,
	timeout time.Duration,
) listProductsQuery {
	type res = pagination.Response[productView]

	return query.Wrap(list,
		wrapper.NewMetaInjectQueryWrapper[*listProducts, res](listProductsName),
		wrapper.NewTracingQueryWrapper[*listProducts, res](listProductsName),
		wrapper.NewLoggerQueryWrapper[*listProducts, res](log, listProductsName),
		wrapper.NewAlertQueryWrapper[*listProducts, res](log, alerts, listProductsName),
		wrapper.NewRecoveryQueryWrapper[*listProducts, res](log, listProductsName),
		wrapper.NewValidationQueryWrapper[*listProducts, res](),
		wrapper.NewTimeoutQueryWrapper[*listProducts, res](timeout),
	)
}
