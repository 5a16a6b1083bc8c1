package library

import (
	"fmt"
	"iter"
	"strings"
)

// search returns the values whose field contains term, ignoring case.
func search[T any](seq iter.Seq[T], term string, field func(T) string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []T
	for v := range seq {
		if strings.Contains(strings.ToLower(field(v)), term) {
			out = append(out, v)
		}
	}
	return out
}

func invalidSearchField(field string) error {
	return fmt.Errorf("cannot search by %q: %w", field, ErrInvalidOperation)
}
