package main

import (
	"context"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/cqrs/query/wrapper"
	"github.com/rise-and-shine/repokit/observability/alert"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/rise-and-shine/repokit/pg"
	"github.com/rise-and-shine/repokit/val"
)

func ids(items []productView) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func quietLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Disable: true})
	require.NoError(t, err)
	return log
}

func TestWrapListProductsRecovers(t *testing.T) {
	broken := query.Func[*listProducts, pagination.Response[productView]](
		func(context.Context, *listProducts) (pagination.Response[productView], error) {
			panic("scan into nil map")
		},
	)

	list := wrapListProducts(broken, quietLogger(t), alert.Global(), time.Second)

	var err error
	assert.NotPanics(t, func() {
		_, err = list.Execute(t.Context(), &listProducts{})
	})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered), "got %v", err)
	assert.Equal(t, errx.T_Internal, errx.GetType(err))
}

func TestCatalog(t *testing.T) {
	ctx := t.Context()

	db, err := pg.NewSQLiteDB(pg.SQLiteConfig{Name: "catalogdemo_test", InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, createSchema(ctx, db))
	repo, err := newProductRepo(db)
	require.NoError(t, err)

	require.NoError(t, seed(ctx, repo))
	require.NoError(t, seed(ctx, repo), "seeding twice is a no-op")

	live, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(27), live, "expensive items are soft deleted")

	all, err := repo.WithDeleted().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30), all)

	pipeline, err := newListProducts(repo, pagination.Config{DefaultPageSize: 5, MaxPageSize: 50})
	require.NoError(t, err)
	list := wrapListProducts(pipeline, quietLogger(t), alert.Global(), time.Second)

	tests := []struct {
		name      string
		params    *listProducts
		wantTotal int64
		wantIDs   []int64
	}{
		{
			name:      "defaults",
			params:    &listProducts{},
			wantTotal: 27,
			wantIDs:   []int64{1, 2, 3, 4, 5},
		},
		{
			name:      "cheapest first",
			params:    &listProducts{QueryParams: pagination.QueryParams{SortBy: "price", IsAscending: true, PageSize: 3}},
			wantTotal: 27,
			wantIDs:   []int64{1, 26, 14},
		},
		{
			name:      "category",
			params:    &listProducts{Category: "lamps", QueryParams: pagination.QueryParams{PageSize: 500}},
			wantTotal: 8,
			wantIDs:   []int64{1, 4, 7, 10, 16, 19, 22, 28},
		},
		{
			name:      "search under a price",
			params:    &listProducts{MaxPrice: 3000, QueryParams: pagination.QueryParams{SearchTerm: "DESKS"}},
			wantTotal: 3,
			wantIDs:   []int64{3, 15, 27},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := list.Execute(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, page.TotalCount)
			assert.Equal(t, tt.wantIDs, ids(page.PageContent))
		})
	}

	t.Run("unknown category", func(t *testing.T) {
		_, err := list.Execute(ctx, &listProducts{Category: "sofas"})
		require.Error(t, err)
		assert.True(t, errx.IsCodeIn(err, val.CodeValidationFailed))
	})
}

func TestToView(t *testing.T) {
	v := toView(product{ID: 7, SKU: "SKU-007", Name: "lamps 07", Price: 5422})
	assert.Equal(t, productView{ID: 7, SKU: "SKU-007", Label: "lamps 07", Price: "54.22"}, v)
}
