package pagination_test

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rise-and-shine/repokit/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProperties(t *testing.T) {
	cfg := pagination.DefaultConfig()
	properties := gopter.NewProperties(nil)

	properties.Property("page number and size are always in range", prop.ForAll(
		func(page, size int) bool {
			p := pagination.QueryParams{PageNumber: page, PageSize: size}
			p.Normalize(cfg)
			return p.PageNumber >= 1 && p.PageSize >= 1 && p.PageSize <= cfg.MaxPageSize
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(-1000, 1000),
	))

	properties.Property("valid values are kept", prop.ForAll(
		func(page, size int) bool {
			p := pagination.QueryParams{PageNumber: page, PageSize: size}
			p.Normalize(cfg)
			return p.PageNumber == page && p.PageSize == size
		},
		gen.IntRange(1, 1000),
		gen.IntRange(1, cfg.MaxPageSize),
	))

	properties.Property("normalize is idempotent", prop.ForAll(
		func(page, size int) bool {
			p := pagination.QueryParams{PageNumber: page, PageSize: size}
			p.Normalize(cfg)
			again := p
			again.Normalize(cfg)
			return again == p
		},
		gen.IntRange(-50, 50),
		gen.IntRange(-500, 500),
	))

	properties.Property("offset never overflows", prop.ForAll(
		func(page, size int) bool {
			p := pagination.QueryParams{PageNumber: page, PageSize: size}
			p.Normalize(cfg)
			return p.Offset() >= 0
		},
		gen.Int(),
		gen.IntRange(-10, 500),
	))

	properties.TestingRun(t)
}

func TestNormalizeHugePageNumber(t *testing.T) {
	p := pagination.QueryParams{PageNumber: math.MaxInt, PageSize: 20}
	p.Normalize(pagination.DefaultConfig())

	assert.Equal(t, math.MaxInt/20, p.PageNumber)
	assert.GreaterOrEqual(t, p.Offset(), 0)
	assert.Equal(t, 20, p.Limit())
}

func TestNewResponse(t *testing.T) {
	tests := []struct {
		name        string
		page, size  int
		items       int
		total       int64
		pageCount   int
		hasNext     bool
		hasPrevious bool
	}{
		{name: "last partial page", page: 3, size: 10, items: 5, total: 25, pageCount: 3, hasPrevious: true},
		{name: "first page", page: 1, size: 10, items: 10, total: 25, pageCount: 3, hasNext: true},
		{name: "empty result", page: 1, size: 20, items: 0, total: 0, pageCount: 0},
		{name: "exact fit", page: 2, size: 5, items: 5, total: 10, pageCount: 2, hasPrevious: true},
		{name: "beyond the last page", page: 9, size: 10, items: 0, total: 25, pageCount: 3, hasPrevious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.items)
			r := pagination.NewResponse(items, tt.total, pagination.QueryParams{PageNumber: tt.page, PageSize: tt.size})

			assert.Equal(t, tt.pageCount, r.PageCount)
			assert.Equal(t, tt.hasNext, r.HasNext)
			assert.Equal(t, tt.hasPrevious, r.HasPrevious)
			assert.LessOrEqual(t, len(r.PageContent), r.PageSize)
			assert.GreaterOrEqual(t, r.TotalCount, int64(len(r.PageContent)))
		})
	}
}

func TestResponseJSON(t *testing.T) {
	r := pagination.NewResponse[string](nil, 0, pagination.QueryParams{PageNumber: 1, PageSize: 20})

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"page_number":1,"page_size":20,"page_count":0,"total_count":0,"has_next":false,"has_previous":false,"page_content":[]}`,
		string(b))
}

func TestMapResponse(t *testing.T) {
	r := pagination.NewResponse([]int{1, 2, 3}, 13, pagination.QueryParams{PageNumber: 2, PageSize: 3})

	mapped := pagination.MapResponse(r, strconv.Itoa)

	assert.Equal(t, []string{"1", "2", "3"}, mapped.PageContent)
	assert.Equal(t, r.PageCount, mapped.PageCount)
	assert.Equal(t, r.TotalCount, mapped.TotalCount)
	assert.True(t, mapped.HasNext)
}
