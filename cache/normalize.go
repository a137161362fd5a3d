package cache

import (
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, decomposes it (NFD) and strips combining marks so
// "Café" and "cafe" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Tokenize returns the set of whitespace-separated words of the normalized s.
func Tokenize(s string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(strings.Fields(Normalize(s))...)
}
