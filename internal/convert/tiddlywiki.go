package convert

import (
	"regexp"
	"strings"
)

var (
	twHeadingRe = regexp.MustCompile(`(?m)^(!{1,6})[ \t]*`)
	twBoldRe    = regexp.MustCompile(`''(.+?)''`)
	twItalicRe  = regexp.MustCompile(`(?m)(^|[^:])//([^/].*?)//`)
	twStrikeRe  = regexp.MustCompile(`--([^\s-][^-]*?)--`)
	twListRe    = regexp.MustCompile(`(?m)^([*#]+)[ \t]*`)
	twImageRe   = regexp.MustCompile(`\[img\[([^\]]+)\]\]`)
)

// convertTiddlyWiki rewrites TiddlyWiki markup to Markdown. The italic rule
// deliberately skips "://" so URLs survive.
func convertTiddlyWiki(body string) string {
	out := twImageRe.ReplaceAllString(body, "![]($1)")

	// Lists first: the heading pass emits '#' at line start, which the list
	// pattern would otherwise re-match.
	out = twListRe.ReplaceAllStringFunc(out, func(m string) string {
		markers := strings.TrimRight(m, " \t")
		indent := strings.Repeat("  ", len(markers)-1)
		if markers[len(markers)-1] == '#' {
			return indent + "1. "
		}
		return indent + "- "
	})

	out = twHeadingRe.ReplaceAllStringFunc(out, func(m string) string {
		bangs := strings.TrimRight(m, " \t")
		return strings.Repeat("#", len(bangs)) + " "
	})

	out = twBoldRe.ReplaceAllString(out, "**$1**")
	out = twItalicRe.ReplaceAllString(out, "$1*$2*")
	out = twStrikeRe.ReplaceAllString(out, "~~$1~~")

	return out
}
