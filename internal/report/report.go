// Package report renders the migration report written into the output vault
// after every run: counters, failures, broken references and the graph
// diagnostics (orphans, reference cycles).
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/resolver"
)

// Filename is the report's location in the vault root.
const Filename = "migration-report.md"

// Render produces the Markdown report for one completed run.
func Render(res *pipeline.Result, g *graph.Graph, broken []resolver.BrokenRef) string {
	var b strings.Builder

	b.WriteString("# Migration Report\n\n")
	fmt.Fprintf(&b, "Run `%s` finished as %s, started %s, took %s.\n\n",
		res.RunID, res.State, res.StartedAt.Format(time.RFC3339), res.Duration.Round(time.Millisecond))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files discovered | %d |\n", res.FilesDiscovered)
	fmt.Fprintf(&b, "| Files migrated | %d |\n", res.FilesSucceeded)
	fmt.Fprintf(&b, "| Files failed | %d |\n", res.FilesFailed)
	fmt.Fprintf(&b, "| Documents parsed | %d |\n", res.DocumentsParsed)
	fmt.Fprintf(&b, "| Documents written | %d |\n", res.DocumentsWritten)
	fmt.Fprintf(&b, "| Attachments copied | %d |\n", res.AttachmentsCopied)
	fmt.Fprintf(&b, "| Attachments missing | %d |\n", res.AttachmentsMissing)
	fmt.Fprintf(&b, "| Broken references | %d |\n", res.BrokenReferences)

	if res.Cancelled {
		b.WriteString("\n**Run was cancelled; results are partial.**\n")
	}

	if len(res.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range res.Failures {
			fmt.Fprintf(&b, "- `%s`: %s\n", f.Path, f.Message)
		}
	}

	if len(broken) > 0 {
		b.WriteString("\n## Broken references\n\n")
		for _, group := range groupBySource(broken) {
			fmt.Fprintf(&b, "- **%s** -> %s\n", group.source, strings.Join(group.targets, ", "))
		}
	}

	if orphans := g.Orphans(); len(orphans) > 0 {
		b.WriteString("\n## Orphans\n\nDocuments nothing links to:\n\n")
		for _, o := range orphans {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}

	if cycles := g.DetectCycles(); len(cycles) > 0 {
		b.WriteString("\n## Reference cycles\n\n")
		for _, c := range cycles {
			fmt.Fprintf(&b, "- %s\n", strings.Join(c, " -> "))
		}
	}

	return b.String()
}

type sourceGroup struct {
	source  string
	targets []string
}

// groupBySource batches broken references per source document, sources
// sorted, targets in recorded order.
func groupBySource(broken []resolver.BrokenRef) []sourceGroup {
	bySource := make(map[string][]string)
	for _, ref := range broken {
		bySource[ref.Source] = append(bySource[ref.Source], ref.Target)
	}
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	out := make([]sourceGroup, 0, len(sources))
	for _, s := range sources {
		out = append(out, sourceGroup{source: s, targets: bySource[s]})
	}
	return out
}
