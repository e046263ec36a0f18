package pagedquery_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/code19m/errx"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/pagedquery"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/rise-and-shine/repokit/pg"
	"github.com/rise-and-shine/repokit/repogen"
	"github.com/rise-and-shine/repokit/sorter"
)

type product struct {
	bun.BaseModel `bun:"table:products,alias:p"`
	pg.SoftDeleteModel

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"name,notnull"`
	Category string `bun:"category,notnull"`
	Price    int64  `bun:"price,notnull"`
}

type productView struct {
	ID    int64
	Label string
}

func toView(p product) productView {
	return productView{ID: p.ID, Label: fmt.Sprintf("%s (%d)", p.Name, p.Price)}
}

type listProducts struct {
	pagination.QueryParams

	Category string
}

func newRepo(t *testing.T, rows int) *repogen.PgRepo[product, int64] {
	t.Helper()
	ctx := context.Background()

	db, err := pg.NewSQLiteDB(pg.SQLiteConfig{
		Name:     strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()),
		InMemory: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*product)(nil)).Exec(ctx)
	require.NoError(t, err)

	reg, err := entitykey.NewRegistry(db.Dialect(), (*product)(nil))
	require.NoError(t, err)
	repo, err := repogen.NewPgRepoBuilder[product, int64](db, reg).Build()
	require.NoError(t, err)

	items := make([]product, rows)
	for i := range items {
		category := "lamps"
		if i%2 == 1 {
			category = "chairs"
		}
		items[i] = product{
			Name:     fmt.Sprintf("item %02d", i+1),
			Category: category,
			Price:    int64((rows - i) * 10),
		}
	}
	if rows > 0 {
		require.NoError(t, repo.AddRange(ctx, items))
		_, err = repo.SaveChanges(ctx)
		require.NoError(t, err)
	}
	return repo
}

func productSorts() *sorter.SortMap {
	return sorter.NewSortMap(
		sorter.Column("id"),
		map[string]sorter.Order{
			"name":  sorter.Expr("lower(?TableAlias.name)"),
			"price": sorter.Column("price"),
		},
	)
}

func byCategory(q *bun.SelectQuery, p *listProducts) *bun.SelectQuery {
	if p.Category == "" {
		return q
	}
	return q.Where("?TableAlias.category = ?", p.Category)
}

func byName(q *bun.SelectQuery, p *listProducts) *bun.SelectQuery {
	return q.Where("?TableAlias.name LIKE ?", "%"+p.SearchTerm+"%")
}

func newPipeline(t *testing.T, repo *repogen.PgRepo[product, int64]) *pagedquery.Pipeline[*listProducts, product, productView] {
	t.Helper()

	pipeline, err := pagedquery.NewBuilder[*listProducts](repo, toView).
		WithBusinessFilters(byCategory).
		WithSearch(nil, byName).
		WithSortMap(productSorts()).
		Build()
	require.NoError(t, err)
	return pipeline
}

func ids(items []productView) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestExecutePaging(t *testing.T) {
	ctx := context.Background()
	pipeline := newPipeline(t, newRepo(t, 25))

	tests := []struct {
		name      string
		page      int
		size      int
		wantItems int
		wantPage  int
		wantSize  int
		wantNext  bool
	}{
		{name: "first page", page: 1, size: 10, wantItems: 10, wantPage: 1, wantSize: 10, wantNext: true},
		{name: "last partial page", page: 3, size: 10, wantItems: 5, wantPage: 3, wantSize: 10},
		{name: "beyond the end", page: 9, size: 10, wantItems: 0, wantPage: 9, wantSize: 10},
		{name: "defaults", page: 0, size: 0, wantItems: 20, wantPage: 1, wantSize: 20, wantNext: true},
		{name: "size clamped", page: 1, size: 5000, wantItems: 25, wantPage: 1, wantSize: 200},
		{name: "huge page number", page: math.MaxInt / 10, size: 20, wantItems: 0, wantPage: math.MaxInt / 20, wantSize: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := &listProducts{QueryParams: pagination.QueryParams{PageNumber: tt.page, PageSize: tt.size}}

			page, err := pipeline.Execute(ctx, params)
			require.NoError(t, err)

			assert.Equal(t, int64(25), page.TotalCount)
			assert.Len(t, page.PageContent, tt.wantItems)
			assert.Equal(t, tt.wantPage, page.PageNumber)
			assert.Equal(t, tt.wantSize, page.PageSize)
			assert.Equal(t, tt.wantNext, page.HasNext)
			assert.Equal(t, tt.wantPage, params.PageNumber, "params are normalized in place")
		})
	}

	t.Run("third page of ten", func(t *testing.T) {
		page, err := pipeline.Execute(ctx, &listProducts{
			QueryParams: pagination.QueryParams{PageNumber: 3, PageSize: 10, SortBy: "id", IsAscending: true},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{21, 22, 23, 24, 25}, ids(page.PageContent))
		assert.Equal(t, 3, page.PageCount)
		assert.True(t, page.HasPrevious)
	})
}

func TestExecuteSorting(t *testing.T) {
	ctx := context.Background()
	pipeline := newPipeline(t, newRepo(t, 5))

	tests := []struct {
		name   string
		sortBy string
		asc    bool
		want   []int64
	}{
		{name: "price ascending", sortBy: "price", asc: true, want: []int64{5, 4, 3, 2, 1}},
		{name: "price descending", sortBy: "Price", asc: false, want: []int64{1, 2, 3, 4, 5}},
		{name: "name descending", sortBy: "name", asc: false, want: []int64{5, 4, 3, 2, 1}},
		{name: "unknown key falls back", sortBy: "bogus", asc: false, want: []int64{1, 2, 3, 4, 5}},
		{name: "no key falls back", want: []int64{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := pipeline.Execute(ctx, &listProducts{
				QueryParams: pagination.QueryParams{SortBy: tt.sortBy, IsAscending: tt.asc},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.PageContent))
		})
	}

	t.Run("default order is the key", func(t *testing.T) {
		pipeline, err := pagedquery.NewBuilder[*listProducts](newRepo(t, 3), toView).Build()
		require.NoError(t, err)

		page, err := pipeline.Execute(ctx, &listProducts{QueryParams: pagination.QueryParams{SortBy: "price"}})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, ids(page.PageContent))
	})
}

func TestExecuteFiltersAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, 25)
	pipeline := newPipeline(t, repo)

	page, err := pipeline.Execute(ctx, &listProducts{Category: "lamps"})
	require.NoError(t, err)
	assert.Equal(t, int64(13), page.TotalCount)

	page, err = pipeline.Execute(ctx, &listProducts{
		QueryParams: pagination.QueryParams{SearchTerm: "item 1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), page.TotalCount, "item 10 to item 19")

	page, err = pipeline.Execute(ctx, &listProducts{
		QueryParams: pagination.QueryParams{SearchTerm: "item 1"},
		Category:    "chairs",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, "item 10 (160)", page.PageContent[0].Label)

	page, err = pipeline.Execute(ctx, &listProducts{QueryParams: pagination.QueryParams{SearchTerm: "   "}})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.TotalCount, "blank search terms are ignored")

	t.Run("soft deleted rows are excluded", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 1))
		_, err := repo.SaveChanges(ctx)
		require.NoError(t, err)

		page, err := pipeline.Execute(ctx, &listProducts{})
		require.NoError(t, err)
		assert.Equal(t, int64(24), page.TotalCount)
	})
}

func TestTotalIsIndependentOfPaging(t *testing.T) {
	ctx := context.Background()
	pipeline := newPipeline(t, newRepo(t, 25))
	properties := gopter.NewProperties(nil)

	properties.Property("total and page length", prop.ForAll(
		func(pageNumber, pageSize int) bool {
			page, err := pipeline.Execute(ctx, &listProducts{
				QueryParams: pagination.QueryParams{PageNumber: pageNumber, PageSize: pageSize},
			})
			if err != nil {
				return false
			}
			want := max(0, min(pageSize, 25-(pageNumber-1)*pageSize))
			return page.TotalCount == 25 && len(page.PageContent) == want
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

func TestHookOrder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, 3)

	var calls []string
	record := func(name string) pagedquery.QueryFunc[*listProducts] {
		return func(q *bun.SelectQuery, _ *listProducts) *bun.SelectQuery {
			calls = append(calls, name)
			return q
		}
	}

	pipeline, err := pagedquery.NewBuilder[*listProducts](nil, toView).
		WithBaseQuery(func(context.Context, *listProducts) *bun.SelectQuery {
			calls = append(calls, "base")
			return repo.BaseQuery()
		}).
		WithBusinessFilters(record("filter-1"), record("filter-2")).
		WithSearch(func(*listProducts) bool {
			calls = append(calls, "has-search")
			return true
		}, record("search")).
		WithSort(record("sort")).
		Build()
	require.NoError(t, err)

	_, err = pipeline.Execute(ctx, &listProducts{})
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "filter-1", "filter-2", "has-search", "search", "sort"}, calls)

	calls = nil
	_, err = pipeline.Execute(ctx, &listProducts{QueryParams: pagination.QueryParams{PageNumber: 5}})
	require.NoError(t, err)
	assert.NotContains(t, calls, "sort", "an empty page is not read")
}

func TestBuild(t *testing.T) {
	_, err := pagedquery.NewBuilder[*listProducts, product, productView](nil, nil).Build()
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, entitykey.CodeInvalidArgument))

	_, err = pagedquery.NewBuilder[*listProducts](nil, toView).Build()
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, entitykey.CodeInvalidArgument))
}

func TestExecuteNilParams(t *testing.T) {
	repo := newRepo(t, 0)

	page, err := newPipeline(t, repo).Execute(context.Background(), &listProducts{})
	require.NoError(t, err)
	assert.Empty(t, page.PageContent)
	assert.NotNil(t, page.PageContent)

	var params *pagination.QueryParams
	plain, err := pagedquery.NewBuilder[*pagination.QueryParams](repo, toView).Build()
	require.NoError(t, err)
	_, err = plain.Execute(context.Background(), params)
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, entitykey.CodeInvalidArgument))
}

func TestExecuteStoreFailure(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery(`SELECT count\(\*\)`).WillReturnError(errors.New("canceling statement due to statement timeout"))

	pipeline, err := pagedquery.NewBuilder[*listProducts](nil, toView).
		WithBaseQuery(func(context.Context, *listProducts) *bun.SelectQuery {
			return db.NewSelect().Model((*product)(nil))
		}).
		Build()
	require.NoError(t, err)

	_, err = pipeline.Execute(context.Background(), &listProducts{})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, repogen.CodeRepositoryFailure))
	assert.Equal(t, errx.T_Internal, errx.GetType(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
