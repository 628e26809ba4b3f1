// Package normalize canonicalizes user-supplied identifiers before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Username trims a username. Case is preserved for display; use Fold for lookups.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Fold returns the case- and diacritics-folded form used in *_ci fields.
func Fold(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// QueryParam trims a search query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
