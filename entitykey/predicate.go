package entitykey

import (
	"github.com/code19m/errx"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
)

// Predicate is a filter expression that can be applied to select, update and
// delete queries alike. It is translated to SQL and never evaluated in memory.
type Predicate func(bun.QueryBuilder) bun.QueryBuilder

// Apply applies p to q. A nil predicate leaves q unchanged.
func (p Predicate) Apply(q bun.QueryBuilder) bun.QueryBuilder {
	if p == nil {
		return q
	}
	return p(q)
}

// Where builds a predicate from a raw bun condition, e.g. Where("?TableAlias.price > ?", 10).
func Where(query string, args ...any) Predicate {
	return func(q bun.QueryBuilder) bun.QueryBuilder {
		return q.Where(query, args...)
	}
}

// And combines predicates so that all of them must hold.
func And(preds ...Predicate) Predicate {
	return func(q bun.QueryBuilder) bun.QueryBuilder {
		return q.WhereGroup(" AND ", func(q bun.QueryBuilder) bun.QueryBuilder {
			for _, p := range preds {
				q = p.Apply(q)
			}
			return q
		})
	}
}

// Or combines predicates so that at least one of them must hold. Nil
// predicates are ignored; with none left, Or matches nothing.
func Or(preds ...Predicate) Predicate {
	preds = lo.Filter(preds, func(p Predicate, _ int) bool { return p != nil })
	if len(preds) == 0 {
		return Nothing()
	}
	return func(q bun.QueryBuilder) bun.QueryBuilder {
		return q.WhereGroup(" AND ", func(q bun.QueryBuilder) bun.QueryBuilder {
			for _, p := range preds {
				q = q.WhereGroup(" OR ", func(q bun.QueryBuilder) bun.QueryBuilder {
					return p(q)
				})
			}
			return q
		})
	}
}

// Not negates p. A nil p stands for "every row", so Not(nil) matches nothing.
func Not(p Predicate) Predicate {
	if p == nil {
		return Nothing()
	}
	return func(q bun.QueryBuilder) bun.QueryBuilder {
		// bun drops the separator of the first condition, so the negated group
		// needs a condition in front of it.
		return q.Where("1 = 1").WhereGroup(" AND NOT ", func(q bun.QueryBuilder) bun.QueryBuilder {
			return p.Apply(q)
		})
	}
}

// Nothing matches no row.
func Nothing() Predicate {
	return Where("1 = 0")
}

// EqualsKey builds "key = value" for the entity described by d. value is
// coerced to the declared key type first.
func EqualsKey(d Descriptor, value any) (Predicate, error) {
	key, err := Coerce(d, value)
	if err != nil {
		return nil, err
	}
	return equals(d.KeyColumn, key), nil
}

// KeyIn builds "key IN (values...)". Values are coerced one by one and
// deduplicated. No values builds a predicate that matches nothing.
func KeyIn(d Descriptor, values ...any) (Predicate, error) {
	keys := make([]any, 0, len(values))
	for i, v := range values {
		key, err := Coerce(d, v)
		if err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(errx.D{"position": i}))
		}
		keys = append(keys, key)
	}
	return in(d.KeyColumn, lo.Uniq(keys)), nil
}

// MatchKey is the typed form of EqualsKey, for callers that already hold a K.
func MatchKey[K comparable](d Descriptor, key K) Predicate {
	return equals(d.KeyColumn, key)
}

// MatchKeys is the typed form of KeyIn.
func MatchKeys[K comparable](d Descriptor, keys []K) Predicate {
	return in(d.KeyColumn, lo.ToAnySlice(lo.Uniq(keys)))
}

func equals(column string, key any) Predicate {
	return func(q bun.QueryBuilder) bun.QueryBuilder {
		return q.Where("?TableAlias.? = ?", bun.Ident(column), key)
	}
}

func in(column string, keys []any) Predicate {
	if len(keys) == 0 {
		return Nothing()
	}
	return func(q bun.QueryBuilder) bun.QueryBuilder {
		return q.Where("?TableAlias.? IN (?)", bun.Ident(column), bun.In(keys))
	}
}
