package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/classify"
	"github.com/starford/raido/internal/convert"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/resolver"
	"github.com/starford/raido/internal/scan"
	"github.com/starford/raido/internal/storage"
)

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPipeline(t *testing.T, sourceDir string, opts ...Option) (*Pipeline, storage.Provider) {
	t.Helper()
	vault, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	res := resolver.New()
	conv := convert.New(res, convert.LinkMarkdown)
	p := New(scan.New(sourceDir, nil), conv, vault, res, opts...)
	return p, vault
}

func TestRunEmptySource(t *testing.T) {
	p, _ := newTestPipeline(t, t.TempDir())

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateCompleted {
		t.Fatalf("State = %q, want %q", res.State, StateCompleted)
	}
	if res.FilesDiscovered != 0 || !res.Success() {
		t.Fatalf("empty source: discovered=%d success=%v", res.FilesDiscovered, res.Success())
	}
}

func TestRunResolvesAcrossDiscoveryOrder(t *testing.T) {
	src := t.TempDir()
	// "a.md" sorts before "b.md", yet A's reference to B must resolve.
	writeSource(t, src, "a.md", "# Page A\n\nSee [[Page B]] and [[Page C]].\n")
	writeSource(t, src, "b.md", "# Page B\n\nSee [[Page C]].\n")
	writeSource(t, src, "c.md", "# Page C\n\nNo references.\n")

	p, vault := newTestPipeline(t, src)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateCompleted {
		t.Fatalf("State = %q, want %q", res.State, StateCompleted)
	}
	if res.FilesSucceeded != 3 || res.FilesFailed != 0 {
		t.Fatalf("succeeded=%d failed=%d, want 3/0", res.FilesSucceeded, res.FilesFailed)
	}
	if res.DocumentsWritten != 3 {
		t.Fatalf("DocumentsWritten = %d, want 3", res.DocumentsWritten)
	}
	if res.BrokenReferences != 0 {
		t.Fatalf("BrokenReferences = %d, want 0", res.BrokenReferences)
	}

	data, err := vault.Read("page-a.md")
	if err != nil {
		t.Fatalf("read page-a.md: %v", err)
	}
	if !strings.Contains(string(data), "[Page B](page-b.md)") {
		t.Fatalf("page-a.md missing resolved link:\n%s", data)
	}

	data, err = vault.Read("page-c.md")
	if err != nil {
		t.Fatalf("read page-c.md: %v", err)
	}
	for _, want := range []string{"Page A", "Page B"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("page-c.md missing backlink %q:\n%s", want, data)
		}
	}
}

func TestRunBacklinksAttached(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.md", "# Alpha\n\n[[Beta]]\n")
	writeSource(t, src, "b.md", "# Beta\n\nplain\n")

	p, _ := newTestPipeline(t, src)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var beta *models.Document
	for _, d := range p.Documents() {
		if d.Title == "Beta" {
			beta = d
		}
	}
	if beta == nil {
		t.Fatal("Beta not parsed")
	}
	if len(beta.Backlinks) != 1 || beta.Backlinks[0] != "Alpha" {
		t.Fatalf("Backlinks = %v, want [Alpha]", beta.Backlinks)
	}
}

func TestRunPartialFailure(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.md", "# Page A\n\n[[Page C]]\n")
	bad := writeSource(t, src, "b.xml", "<notawiki></notawiki>")
	writeSource(t, src, "c.md", "# Page C\n\nbody\n")

	p, vault := newTestPipeline(t, src)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.FilesDiscovered != 3 {
		t.Fatalf("FilesDiscovered = %d, want 3", res.FilesDiscovered)
	}
	if res.FilesSucceeded != 2 || res.FilesFailed != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 2/1", res.FilesSucceeded, res.FilesFailed)
	}
	if res.DocumentsWritten != 2 {
		t.Fatalf("DocumentsWritten = %d, want 2", res.DocumentsWritten)
	}
	if len(res.Failures) != 1 || res.Failures[0].Path != bad {
		t.Fatalf("Failures = %v, want one entry for %s", res.Failures, bad)
	}
	if !res.Success() {
		t.Fatal("run with one failed file out of three should still succeed")
	}
	if res.State != StateCompleted {
		t.Fatalf("State = %q, want %q", res.State, StateCompleted)
	}

	if _, err := vault.Read("page-a.md"); err != nil {
		t.Fatalf("page-a.md not written: %v", err)
	}
	if _, err := vault.Read("page-c.md"); err != nil {
		t.Fatalf("page-c.md not written: %v", err)
	}
}

func TestRunAllFilesFail(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.xml", "<html>not a dump</html>")

	p, _ := newTestPipeline(t, src)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("State = %q, want %q", res.State, StateFailed)
	}
	if res.Success() {
		t.Fatal("run with zero successes over a non-empty set must not succeed")
	}
}

func TestRunBrokenReferencesTracked(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.md", "# Page A\n\n[[Missing Page]]\n")

	p, vault := newTestPipeline(t, src)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.BrokenReferences != 1 {
		t.Fatalf("BrokenReferences = %d, want 1", res.BrokenReferences)
	}
	broken := p.BrokenReferences()
	if len(broken) != 1 || broken[0].Source != "Page A" || broken[0].Target != "Missing Page" {
		t.Fatalf("broken = %v", broken)
	}

	// Best-effort fallback link is still written.
	data, err := vault.Read("page-a.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[Missing Page](missing-page.md)") {
		t.Fatalf("fallback link missing:\n%s", data)
	}
}

func TestRunClassifierFolders(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.md", "---\ntitle: Budget Plan\ntags: [project]\n---\nbody\n")

	p, vault := newTestPipeline(t, src, WithClassifier(classify.New(classify.DefaultRules(), 0)))
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := vault.Read("Projects/budget-plan.md"); err != nil {
		t.Fatalf("classified document not written: %v", err)
	}
	if len(p.Written()) != 1 || p.Written()[0].Folder != "Projects" {
		t.Fatalf("Written = %+v, want one entry in Projects", p.Written())
	}
}

func TestRunCancellation(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.md", "# Page A\n\nbody\n")
	writeSource(t, src, "b.md", "# Page B\n\nbody\n")
	writeSource(t, src, "c.md", "# Page C\n\nbody\n")

	ctx, cancel := context.WithCancel(context.Background())

	var p *Pipeline
	var vault storage.Provider
	// Cancel after the first file of the write phase.
	p, vault = newTestPipeline(t, src, WithObserver(func(pr Progress) {
		if pr.State == StateConverting && pr.Index == 1 {
			cancel()
		}
	}))

	res, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateCancelled || !res.Cancelled {
		t.Fatalf("State = %q cancelled=%v, want cancelled run", res.State, res.Cancelled)
	}
	if res.FilesSucceeded != 1 {
		t.Fatalf("FilesSucceeded = %d, want 1 (files already written stay written)", res.FilesSucceeded)
	}
	if _, err := vault.Read("page-a.md"); err != nil {
		t.Fatalf("first file should remain written: %v", err)
	}
	if _, err := vault.Read("page-c.md"); err == nil {
		t.Fatal("no file after the cancellation point should be written")
	}
}

func TestRunConversionFailureIsolated(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.md", "# Page A\n\nbody\n")
	writeSource(t, src, "b.md", "# Page B\n\nbody\n")

	failing := func(file models.FileInfo, data []byte) (parser.Parser, error) {
		if file.Name == "b.md" {
			return brokenFormatParser{}, nil
		}
		return parser.ForFile(file, data)
	}

	p, _ := newTestPipeline(t, src, WithParserSelector(failing))
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FilesSucceeded != 1 || res.FilesFailed != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 1/1", res.FilesSucceeded, res.FilesFailed)
	}
	if len(res.Failures) != 1 || !strings.Contains(res.Failures[0].Message, "conversion failure") {
		t.Fatalf("Failures = %v, want one conversion failure", res.Failures)
	}
}

// brokenFormatParser emits a document whose format the converter rejects.
type brokenFormatParser struct{}

func (brokenFormatParser) Parse(file models.FileInfo, _ []byte) ([]*models.Document, error) {
	return []*models.Document{{
		Title:  "Bad Format",
		Body:   "body",
		Format: models.FileType("bogus"),
	}}, nil
}

func TestRunProgressOrder(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "a.md", "# Page A\n\nbody\n")

	var states []State
	p, _ := newTestPipeline(t, src, WithObserver(func(pr Progress) {
		if len(states) == 0 || states[len(states)-1] != pr.State {
			states = append(states, pr.State)
		}
	}))
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []State{StateScanning, StateParsing, StateGraphBuilding, StateConverting, StateCompleted}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestRunScanError(t *testing.T) {
	p, _ := newTestPipeline(t, t.TempDir())
	p.scanner = scanFunc(func(context.Context) ([]models.FileInfo, error) {
		return nil, errors.New("disk on fire")
	})

	res, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected scan error to propagate")
	}
	if res.State != StateFailed {
		t.Fatalf("State = %q, want %q", res.State, StateFailed)
	}
}

type scanFunc func(ctx context.Context) ([]models.FileInfo, error)

func (f scanFunc) Scan(ctx context.Context) ([]models.FileInfo, error) { return f(ctx) }
