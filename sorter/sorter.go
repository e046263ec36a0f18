// Package sorter turns the sort keys of list requests into ORDER BY clauses.
//
// A SortMap holds the keys an endpoint accepts and the ordering expression each
// one maps to. Multi-key sort strings like "name:asc,price:desc" are parsed
// with Parse.
package sorter

import (
	"slices"
	"strings"
)

// SortDirection is Asc or Desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Opt is one parsed "key[:direction]" item of a sort string.
type Opt struct {
	Key string
	Dir SortDirection
}

// Parse splits a sort string such as "name:asc,price:desc" into options.
// Keys are trimmed and lowercased; a missing direction means Asc. Items with an
// unknown direction, a key outside allowed, or a key seen before are skipped.
// An empty allowed list accepts every key.
func Parse(sortString string, allowed ...string) []Opt {
	var opts []Opt
	for item := range strings.SplitSeq(sortString, ",") {
		key, dir, hasDir := strings.Cut(item, ":")
		key = normalizeKey(key)
		if key == "" {
			continue
		}
		if len(allowed) > 0 && !slices.Contains(allowed, key) {
			continue
		}
		if slices.ContainsFunc(opts, func(o Opt) bool { return o.Key == key }) {
			continue
		}

		direction := Asc
		if hasDir {
			switch SortDirection(strings.ToLower(strings.TrimSpace(dir))) {
			case Asc:
			case Desc:
				direction = Desc
			default:
				continue
			}
		}

		opts = append(opts, Opt{Key: key, Dir: direction})
	}
	return opts
}

// String formats o back as "key:direction".
func (o Opt) String() string {
	return o.Key + ":" + string(o.Dir)
}
