// Package pagination holds the paging parameters every list request carries and
// the paged result every list response returns.
package pagination

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

const (
	defaultPageSize = 20
	defaultMaxSize  = 200
)

// Config holds the paging limits of the application.
type Config struct {
	DefaultPageSize int `yaml:"default_page_size" default:"20"  validate:"gte=1"`
	MaxPageSize     int `yaml:"max_page_size"     default:"200" validate:"gte=1"`
}

// DefaultConfig returns page size 20 and max page size 200.
func DefaultConfig() Config {
	return Config{DefaultPageSize: defaultPageSize, MaxPageSize: defaultMaxSize}
}

// QueryParams is embedded in the request structs of list endpoints; modules add
// their own filter fields next to it.
type QueryParams struct {
	PageNumber  int    `query:"page_number"  json:"page_number"`
	PageSize    int    `query:"page_size"    json:"page_size"`
	SortBy      string `query:"sort_by"      json:"sort_by,omitempty"`
	IsAscending bool   `query:"is_ascending" json:"is_ascending"`
	SearchTerm  string `query:"search_term"  json:"search_term,omitempty"`
}

// Paging returns p itself, so a request that embeds QueryParams exposes it.
func (p *QueryParams) Paging() *QueryParams {
	return p
}

// Normalize clamps the page number to [1, MaxInt/PageSize] and the page size to
// [1, MaxPageSize], using DefaultPageSize when no size was requested.
// Zero values in cfg fall back to DefaultConfig.
func (p *QueryParams) Normalize(cfg Config) {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaultMaxSize
	}
	cfg.DefaultPageSize = min(cfg.DefaultPageSize, cfg.MaxPageSize)

	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = cfg.DefaultPageSize
	}
	if p.PageSize > cfg.MaxPageSize {
		p.PageSize = cfg.MaxPageSize
	}
	// keeps Offset within int
	p.PageNumber = min(p.PageNumber, math.MaxInt/p.PageSize)
}

// Offset returns the number of rows to skip.
func (p *QueryParams) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}

// Limit returns the number of rows to read.
func (p *QueryParams) Limit() int {
	return p.PageSize
}

func (p *QueryParams) String() string {
	return fmt.Sprintf("page=%d size=%d sort=%q asc=%t search=%q",
		p.PageNumber, p.PageSize, p.SortBy, p.IsAscending, p.SearchTerm)
}

// Response is one page of results.
type Response[T any] struct {
	PageNumber  int   `json:"page_number"`
	PageSize    int   `json:"page_size"`
	PageCount   int   `json:"page_count"`
	TotalCount  int64 `json:"total_count"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
	PageContent []T   `json:"page_content"`
}

// NewResponse builds a page from its items and the total number of matching rows.
// p must be normalized.
func NewResponse[T any](items []T, totalCount int64, p QueryParams) Response[T] {
	size := int64(max(p.PageSize, 1))
	pageCount := int(totalCount / size)
	if totalCount%size > 0 {
		pageCount++
	}

	if items == nil {
		items = []T{}
	}

	return Response[T]{
		PageNumber:  p.PageNumber,
		PageSize:    p.PageSize,
		PageCount:   pageCount,
		TotalCount:  totalCount,
		HasNext:     p.PageNumber < pageCount,
		HasPrevious: p.PageNumber > 1,
		PageContent: items,
	}
}

// MapResponse converts the content of r, keeping the paging metadata.
func MapResponse[T, O any](r Response[T], fn func(T) O) Response[O] {
	return Response[O]{
		PageNumber:  r.PageNumber,
		PageSize:    r.PageSize,
		PageCount:   r.PageCount,
		TotalCount:  r.TotalCount,
		HasNext:     r.HasNext,
		HasPrevious: r.HasPrevious,
		PageContent: lo.Map(r.PageContent, func(item T, _ int) O { return fn(item) }),
	}
}

func (r Response[T]) String() string {
	return fmt.Sprintf("page %d of %d (total: %d, size: %d)", r.PageNumber, r.PageCount, r.TotalCount, r.PageSize)
}
