package cache

import (
	"cmp"
	"context"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kbukum/cachesync/store"
)

// Match tiers, best first.
const (
	tierPrefix = iota + 1
	tierSubstring
	tierAllTokens
	tierExcluded
)

// rank returns the match tier of a normalized searchable text.
func rank(searchable, term string, tokens mapset.Set[string]) int {
	switch {
	case strings.HasPrefix(searchable, term):
		return tierPrefix
	case strings.Contains(searchable, term):
		return tierSubstring
	}
	all := true
	tokens.Each(func(tok string) bool {
		if !strings.Contains(searchable, tok) {
			all = false
			return true
		}
		return false
	})
	if all {
		return tierAllTokens
	}
	return tierExcluded
}

type ranked struct {
	row  store.Row
	tier int
}

// Search returns the payloads of rows whose searchable text matches term,
// best match first: rows starting with the term, then rows containing it,
// then rows containing every word of it. Ties sort by raw searchable text.
// The term is normalized and its runs of whitespace collapse to one space,
// so "blue  widget" searches as "blue widget". A blank term matches nothing.
func Search[T any](ctx context.Context, a store.Adapter, storeName, term string, limit int) ([]T, error) {
	q := strings.Join(strings.Fields(Normalize(term)), " ")
	if q == "" {
		return []T{}, nil
	}

	rows, err := a.GetAll(ctx, storeName, DefaultScanCeiling)
	if err != nil {
		return nil, err
	}

	tokens := Tokenize(q)
	matches := make([]ranked, 0)
	for _, r := range rows {
		if tier := rank(Normalize(r.Searchable), q, tokens); tier != tierExcluded {
			matches = append(matches, ranked{row: r, tier: tier})
		}
	}
	slices.SortStableFunc(matches, func(x, y ranked) int {
		if c := cmp.Compare(x.tier, y.tier); c != 0 {
			return c
		}
		return strings.Compare(x.row.Searchable, y.row.Searchable)
	})

	if n := effectiveLimit(limit); len(matches) > n {
		matches = matches[:n]
	}
	out := make([]store.Row, len(matches))
	for i, m := range matches {
		out[i] = m.row
	}
	return decodeRows[T](out)
}
