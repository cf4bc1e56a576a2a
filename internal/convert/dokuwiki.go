package convert

import (
	"regexp"
	"strings"
)

var (
	dwHeadingRe  = regexp.MustCompile(`(?m)^(={2,6})[ \t]*(.+?)[ \t]*=+[ \t]*$`)
	dwItalicRe   = regexp.MustCompile(`(?m)(^|[^:])//([^/].*?)//`)
	dwMonoRe     = regexp.MustCompile(`''(.+?)''`)
	dwExtAliasRe = regexp.MustCompile(`\[\[(https?://[^\]|]+)\|([^\]]+)\]\]`)
	dwExtBareRe  = regexp.MustCompile(`\[\[(https?://[^\]|]+)\]\]`)
	dwListRe     = regexp.MustCompile(`(?m)^( +)([*-])[ \t]*`)
	dwBreakRe    = regexp.MustCompile(`(?m)\\\\[ \t]*$`)
)

// convertDokuWiki rewrites DokuWiki markup to Markdown. DokuWiki inverts the
// heading scale (====== is the top level) and writes external links in the
// same double-bracket syntax as page references, so those are rewritten to
// Markdown links before resolution ever sees them.
func convertDokuWiki(body string) string {
	out := dwHeadingRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := dwHeadingRe.FindStringSubmatch(m)
		return strings.Repeat("#", 7-len(sub[1])) + " " + sub[2]
	})

	out = dwExtAliasRe.ReplaceAllString(out, "[$2]($1)")
	out = dwExtBareRe.ReplaceAllString(out, "<$1>")

	out = dwItalicRe.ReplaceAllString(out, "$1*$2*")
	out = dwMonoRe.ReplaceAllString(out, "`$1`")

	out = dwListRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := dwListRe.FindStringSubmatch(m)
		depth := len(sub[1]) / 2
		if depth < 1 {
			depth = 1
		}
		indent := strings.Repeat("  ", depth-1)
		if sub[2] == "-" {
			return indent + "1. "
		}
		return indent + "- "
	})

	return dwBreakRe.ReplaceAllString(out, "  ")
}
