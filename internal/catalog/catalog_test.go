package catalog

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-catalog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(id string) RunRow {
	return RunRow{
		ID:               id,
		State:            "completed",
		FilesDiscovered:  2,
		FilesSucceeded:   2,
		DocumentsParsed:  2,
		DocumentsWritten: 2,
		StartedAt:        time.Now().UTC().Truncate(time.Second),
		Duration:         1200 * time.Millisecond,
	}
}

func TestLatestRunEmpty(t *testing.T) {
	db := testDB(t)
	if _, err := db.LatestRun(); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("LatestRun on empty catalog: err = %v, want ErrNotFound", err)
	}
}

func TestReplaceRunAndQueries(t *testing.T) {
	db := testDB(t)

	docs := []DocumentRow{
		{Slug: "page-a", Title: "Page A", Format: "markdown", Folder: "Projects",
			Tags: []string{"project"}, Backlinks: []string{}, Body: "See Page B", UpdatedAt: time.Now()},
		{Slug: "page-b", Title: "Page B", Format: "markdown",
			Backlinks: []string{"Page A"}, Body: "plain", UpdatedAt: time.Now()},
	}
	links := []LinkRow{{Source: "Page A", Target: "Page B"}}
	broken := []BrokenRow{{Source: "Page A", Target: "Ghost"}}
	failures := []FailureRow{{Path: "/src/bad.xml", Message: "not a mediawiki export"}}

	if err := db.ReplaceRun(sampleRun("run-1"), docs, links, broken, failures); err != nil {
		t.Fatalf("ReplaceRun: %v", err)
	}

	run, err := db.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.ID != "run-1" || run.FilesSucceeded != 2 {
		t.Fatalf("run = %+v", run)
	}
	if run.Duration != 1200*time.Millisecond {
		t.Fatalf("Duration = %v, want 1.2s", run.Duration)
	}

	rows, total, err := db.ListDocuments(10, 0, "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("total = %d rows = %d, want 2/2", total, len(rows))
	}
	if rows[0].Title != "Page A" {
		t.Fatalf("documents not ordered by title: %v", rows[0])
	}

	rows, total, err = db.ListDocuments(10, 0, "Projects")
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || rows[0].Slug != "page-a" {
		t.Fatalf("folder filter: total=%d rows=%v", total, rows)
	}

	doc, err := db.GetDocument("page-b")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Body != "plain" {
		t.Fatalf("Body = %q, want body included on single reads", doc.Body)
	}
	if len(doc.Backlinks) != 1 || doc.Backlinks[0] != "Page A" {
		t.Fatalf("Backlinks = %v", doc.Backlinks)
	}
	if doc.VaultPath() != "page-b.md" {
		t.Fatalf("VaultPath = %q", doc.VaultPath())
	}

	if _, err := db.GetDocument("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetDocument(missing): err = %v, want ErrNotFound", err)
	}

	bl, err := db.Backlinks("Page B")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 1 || bl[0] != "Page A" {
		t.Fatalf("Backlinks = %v, want [Page A]", bl)
	}

	br, err := db.BrokenRefs()
	if err != nil {
		t.Fatal(err)
	}
	if len(br) != 1 || br[0].Target != "Ghost" {
		t.Fatalf("BrokenRefs = %v", br)
	}

	fl, err := db.Failures()
	if err != nil {
		t.Fatal(err)
	}
	if len(fl) != 1 || fl[0].Path != "/src/bad.xml" {
		t.Fatalf("Failures = %v", fl)
	}
}

func TestReplaceRunReplacesPriorRun(t *testing.T) {
	db := testDB(t)

	first := []DocumentRow{{Slug: "old-page", Title: "Old Page", UpdatedAt: time.Now()}}
	if err := db.ReplaceRun(sampleRun("run-1"), first,
		[]LinkRow{{Source: "Old Page", Target: "Gone"}},
		[]BrokenRow{{Source: "Old Page", Target: "Gone"}},
		[]FailureRow{{Path: "/old", Message: "x"}}); err != nil {
		t.Fatal(err)
	}

	second := sampleRun("run-2")
	second.StartedAt = second.StartedAt.Add(time.Minute)
	if err := db.ReplaceRun(second, []DocumentRow{{Slug: "new-page", Title: "New Page", UpdatedAt: time.Now()}}, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	run, err := db.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != "run-2" {
		t.Fatalf("LatestRun = %s, want run-2", run.ID)
	}

	if _, err := db.GetDocument("old-page"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatal("documents from the prior run should be gone")
	}
	if br, _ := db.BrokenRefs(); len(br) != 0 {
		t.Fatalf("broken refs from the prior run should be gone, got %v", br)
	}
	if fl, _ := db.Failures(); len(fl) != 0 {
		t.Fatalf("failures from the prior run should be gone, got %v", fl)
	}
	if links, _ := db.Links(); len(links) != 0 {
		t.Fatalf("links from the prior run should be gone, got %v", links)
	}
}

func TestBacklinksCaseInsensitive(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceRun(sampleRun("run-1"), nil,
		[]LinkRow{{Source: "Page A", Target: "Page B"}}, nil, nil); err != nil {
		t.Fatal(err)
	}
	bl, err := db.Backlinks("page b")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 1 {
		t.Fatalf("Backlinks(page b) = %v, want case-insensitive match", bl)
	}
}

func TestSearchFallback(t *testing.T) {
	db := testDB(t)
	docs := []DocumentRow{
		{Slug: "kitchen", Title: "Kitchen Remodel", Body: "granite countertops", UpdatedAt: time.Now()},
		{Slug: "garden", Title: "Garden", Body: "tomatoes", UpdatedAt: time.Now()},
	}
	if err := db.ReplaceRun(sampleRun("run-1"), docs, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	hits, err := db.Search("granite", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Slug != "kitchen" {
		t.Fatalf("hits = %v, want kitchen", hits)
	}
}
