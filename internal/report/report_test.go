package report

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/resolver"
)

func TestRender(t *testing.T) {
	res := &pipeline.Result{
		RunID:            "run-1",
		State:            pipeline.StateCompleted,
		FilesDiscovered:  3,
		FilesSucceeded:   2,
		FilesFailed:      1,
		DocumentsParsed:  2,
		DocumentsWritten: 2,
		BrokenReferences: 1,
		Failures:         []pipeline.Failure{{Path: "/src/bad.xml", Message: "not a mediawiki export"}},
		StartedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:         1500 * time.Millisecond,
	}

	g := graph.New()
	g.AddEdge("Alpha", "Beta")
	g.AddEdge("Beta", "Alpha")
	g.AddNode("Lonely")

	broken := []resolver.BrokenRef{{Source: "Alpha", Target: "Ghost"}}

	out := Render(res, g, broken)

	for _, want := range []string{
		"# Migration Report",
		"| Files discovered | 3 |",
		"| Broken references | 1 |",
		"`/src/bad.xml`: not a mediawiki export",
		"**Alpha** -> Ghost",
		"- Lonely",
		"Alpha -> Beta -> Alpha",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "cancelled") {
		t.Errorf("completed run must not be reported as cancelled:\n%s", out)
	}
}

func TestRenderCancelled(t *testing.T) {
	res := &pipeline.Result{
		RunID:     "run-2",
		State:     pipeline.StateCancelled,
		Cancelled: true,
		StartedAt: time.Now(),
	}

	out := Render(res, graph.New(), nil)
	if !strings.Contains(out, "cancelled") {
		t.Fatalf("cancelled run not flagged:\n%s", out)
	}
}
