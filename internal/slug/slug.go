// Package slug derives filesystem- and URL-safe identifiers from document titles.
package slug

import (
	"strings"
	"unicode"
)

// Fallback is returned when sanitizing leaves nothing usable.
const Fallback = "untitled"

// filesystem-invalid characters stripped before slugging.
const invalidChars = `/\:*?"<>|`

// Sanitize maps a human document title to a lowercase slug containing only
// letters, digits and single hyphens. It is total, deterministic and
// idempotent: Sanitize(Sanitize(x)) == Sanitize(x). An empty result falls
// back to "untitled".
func Sanitize(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastHyphen := false
	for _, r := range title {
		switch {
		case strings.ContainsRune(invalidChars, r):
			// dropped outright
		case unicode.IsSpace(r) || r == '_' || r == '-':
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			// remaining punctuation and symbols are dropped
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return Fallback
	}
	return out
}
