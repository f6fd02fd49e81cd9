package starhunt

import "strings"

// IsCorrect reports whether submitted matches any accepted answer after
// trimming surrounding whitespace and lowercasing both sides.
func IsCorrect(submitted string, accepted []string) bool {
	s := normalize(submitted)
	for _, a := range accepted {
		if s == normalize(a) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
