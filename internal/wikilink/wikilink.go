// Package wikilink recognizes the [[Target]] / [[Target|Display]] reference
// syntax shared by every source wiki dialect Raido migrates.
package wikilink

import (
	"regexp"
	"strings"
)

// Pattern matches one inline reference. Unterminated bracket runs do not
// match; the lazy capture never crosses a closing "]]".
var Pattern = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Ref is one parsed reference occurrence.
type Ref struct {
	Target  string // text before any "|", trimmed
	Display string // alias after "|", empty when none given
}

// Split separates the inner text of a reference into target and display
// parts. The display part is empty when the reference carries no alias.
func Split(inner string) Ref {
	target := inner
	display := ""
	if i := strings.Index(inner, "|"); i >= 0 {
		target = inner[:i]
		display = strings.TrimSpace(inner[i+1:])
	}
	return Ref{Target: strings.TrimSpace(target), Display: display}
}

// IsExternal reports whether a reference target is a URL rather than a
// document title. Some dialects (DokuWiki) write external links in the same
// bracket syntax.
func IsExternal(target string) bool {
	return strings.Contains(target, "://")
}

// Extract returns the reference targets found in body, in first-occurrence
// order, de-duplicated case-insensitively with the first casing preserved.
// Empty and external targets are skipped. A nil or empty body yields nil.
func Extract(body string) []string {
	if body == "" {
		return nil
	}
	matches := Pattern.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		ref := Split(m[1])
		if ref.Target == "" || IsExternal(ref.Target) {
			continue
		}
		key := strings.ToLower(ref.Target)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ref.Target)
	}
	return out
}
