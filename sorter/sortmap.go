package sorter

import (
	"maps"
	"slices"
	"strings"

	"github.com/uptrace/bun"
)

// Order is an ordering expression, e.g. a column or "lower(?TableAlias.name)".
type Order struct {
	expr  string
	args  []any
	fixed SortDirection
	then  []Order
}

// Column orders by a column of the queried model. Qualified names ("c.name") are used as is.
func Column(name string) Order {
	if strings.Contains(name, ".") {
		return Order{expr: "?", args: []any{bun.Ident(name)}}
	}
	return Order{expr: "?TableAlias.?", args: []any{bun.Ident(name)}}
}

// Expr orders by a raw bun expression.
func Expr(expr string, args ...any) Order {
	return Order{expr: expr, args: args}
}

// Asc pins the direction of o regardless of the requested one.
func (o Order) Asc() Order {
	o.fixed = Asc
	return o
}

// Desc pins the direction of o regardless of the requested one.
func (o Order) Desc() Order {
	o.fixed = Desc
	return o
}

// Then appends secondary orderings, applied in the same direction as o unless pinned.
func (o Order) Then(next ...Order) Order {
	o.then = append(slices.Clone(o.then), next...)
	return o
}

func (o Order) apply(q *bun.SelectQuery, dir SortDirection) *bun.SelectQuery {
	if o.fixed != "" {
		dir = o.fixed
	}
	q = q.OrderExpr(o.expr+" "+strings.ToUpper(string(dir)), o.args...)
	for _, next := range o.then {
		q = next.apply(q, dir)
	}
	return q
}

// SortMap maps the sort keys a list endpoint accepts to ordering expressions.
// Keys are matched case-insensitively. Unknown or empty keys fall back to the
// default ordering; they are never an error.
type SortMap struct {
	entries    map[string]Order
	fallback   Order
	tieBreaker *Order
}

// NewSortMap creates a sort map. The fallback is applied ascending unless pinned
// with Desc.
func NewSortMap(fallback Order, entries map[string]Order) *SortMap {
	m := &SortMap{
		entries:  make(map[string]Order, len(entries)),
		fallback: fallback,
	}
	for k, o := range entries {
		m.entries[normalizeKey(k)] = o
	}
	return m
}

// WithTieBreaker adds an ordering applied after every sort, usually the primary
// key, so that pages are stable when sort values repeat.
func (m *SortMap) WithTieBreaker(o Order) *SortMap {
	m.tieBreaker = &o
	return m
}

// Keys returns the accepted sort keys in lexical order.
func (m *SortMap) Keys() []string {
	return slices.Sorted(maps.Keys(m.entries))
}

// Resolve looks up key case-insensitively.
func (m *SortMap) Resolve(key string) (Order, bool) {
	o, ok := m.entries[normalizeKey(key)]
	return o, ok
}

// Apply orders q by the expression mapped to key in the requested direction,
// or by the default ordering if key is not mapped.
func (m *SortMap) Apply(q *bun.SelectQuery, key string, asc bool) *bun.SelectQuery {
	o, ok := m.Resolve(key)
	if !ok {
		return m.applyFallback(q)
	}
	dir := Desc
	if asc {
		dir = Asc
	}
	return m.applyTieBreaker(o.apply(q, dir))
}

// ApplyMany orders q by a sort string such as "name:asc,price:desc". Only
// mapped keys are used; if none remains the default ordering applies.
func (m *SortMap) ApplyMany(q *bun.SelectQuery, sortString string) *bun.SelectQuery {
	opts := Parse(sortString, m.Keys()...)
	if len(opts) == 0 {
		return m.applyFallback(q)
	}
	for _, opt := range opts {
		q = m.entries[opt.Key].apply(q, opt.Dir)
	}
	return m.applyTieBreaker(q)
}

func (m *SortMap) applyFallback(q *bun.SelectQuery) *bun.SelectQuery {
	return m.applyTieBreaker(m.fallback.apply(q, Asc))
}

func (m *SortMap) applyTieBreaker(q *bun.SelectQuery) *bun.SelectQuery {
	if m.tieBreaker == nil {
		return q
	}
	return m.tieBreaker.apply(q, Asc)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
