package convert

import (
	"regexp"
	"strings"
)

var (
	mwHeadingRe = regexp.MustCompile(`(?m)^(={1,6})[ \t]*(.+?)[ \t]*=+[ \t]*$`)
	mwBoldRe    = regexp.MustCompile(`'''(.+?)'''`)
	mwItalicRe  = regexp.MustCompile(`''(.+?)''`)
	mwExtLinkRe = regexp.MustCompile(`\[(https?://[^\s\]]+)(?:[ \t]+([^\]]+))?\]`)
	mwListRe    = regexp.MustCompile(`(?m)^([*#]+)[ \t]*`)
	mwNowikiRe  = regexp.MustCompile(`</?nowiki>`)
)

// convertMediaWiki rewrites wikitext markup to Markdown. Internal [[...]]
// references are left for the resolver; templates are not expanded.
func convertMediaWiki(body string) string {
	out := mwNowikiRe.ReplaceAllString(body, "")

	// Lists first: the heading pass emits '#' at line start, which the list
	// pattern would otherwise re-match.
	out = mwListRe.ReplaceAllStringFunc(out, func(m string) string {
		markers := strings.TrimRight(m, " \t")
		indent := strings.Repeat("  ", len(markers)-1)
		if markers[len(markers)-1] == '#' {
			return indent + "1. "
		}
		return indent + "- "
	})

	out = mwHeadingRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := mwHeadingRe.FindStringSubmatch(m)
		return strings.Repeat("#", len(sub[1])) + " " + sub[2]
	})

	out = mwBoldRe.ReplaceAllString(out, "**$1**")
	out = mwItalicRe.ReplaceAllString(out, "*$1*")

	out = mwExtLinkRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := mwExtLinkRe.FindStringSubmatch(m)
		if sub[2] == "" {
			return "<" + sub[1] + ">"
		}
		return "[" + sub[2] + "](" + sub[1] + ")"
	})

	return out
}
