package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/testutil"
)

// testEnv sets up a seeded catalog, vault and router. An empty authToken
// means disabled auth mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()

	db := testutil.TestCatalog(t)
	_, store := testutil.TestVault(t)

	docs := []catalog.DocumentRow{
		{Slug: "page-a", Title: "Page A", Format: "markdown", Folder: "Projects",
			Tags: []string{"project"}, Backlinks: []string{}, Body: "See [Page B](page-b.md)", UpdatedAt: time.Now()},
		{Slug: "page-b", Title: "Page B", Format: "mediawiki",
			Backlinks: []string{"Page A"}, Body: "plain", UpdatedAt: time.Now()},
	}
	run := catalog.RunRow{
		ID:               "run-1",
		State:            "completed",
		FilesDiscovered:  3,
		FilesSucceeded:   2,
		FilesFailed:      1,
		DocumentsParsed:  2,
		DocumentsWritten: 2,
		BrokenReferences: 1,
		StartedAt:        time.Now(),
		Duration:         time.Second,
	}
	err := db.ReplaceRun(run, docs,
		[]catalog.LinkRow{{Source: "Page A", Target: "Page B"}, {Source: "Page A", Target: "Ghost"}},
		[]catalog.BrokenRow{{Source: "Page A", Target: "Ghost"}},
		[]catalog.FailureRow{{Path: "/src/bad.xml", Message: "not a mediawiki export"}})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	if err := store.Write("Projects/page-a.md", []byte("---\ntitle: Page A\n---\n\nSee [Page B](page-b.md)\n")); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("page-b.md", []byte("---\ntitle: Page B\n---\n\nplain\n")); err != nil {
		t.Fatal(err)
	}

	svc := NewService(db, store)
	return NewRouter(svc, authToken != "", authToken, nil)
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var run catalog.RunRow
	_ = json.Unmarshal(w.Body.Bytes(), &run)
	if run.ID != "run-1" || run.FilesSucceeded != 2 {
		t.Errorf("run = %+v", run)
	}
}

func TestStatusNoRuns(t *testing.T) {
	db := testutil.TestCatalog(t)
	_, store := testutil.TestVault(t)
	router := NewRouter(NewService(db, store), false, "", nil)

	if w := get(t, router, "/status"); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any run", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp DocumentListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Documents) != 2 {
		t.Fatalf("resp = %+v", resp)
	}

	w = get(t, router, "/documents?folder=Projects")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Documents[0].Slug != "page-a" {
		t.Fatalf("folder filter resp = %+v", resp)
	}
}

func TestGetDocument(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents/page-a")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Slug != "page-a" || doc.VaultPath != "Projects/page-a.md" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Content == "" {
		t.Error("content not read from vault")
	}

	if w := get(t, router, "/documents/nope"); w.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d, want 404", w.Code)
	}
}

func TestGraph(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp GraphResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Links) != 2 {
		t.Fatalf("links = %v, want 2", resp.Links)
	}
	// Two migrated documents plus the phantom target Ghost.
	if len(resp.Nodes) != 3 {
		t.Fatalf("nodes = %v, want 3", resp.Nodes)
	}
	var ghost *GraphNode
	for i := range resp.Nodes {
		if resp.Nodes[i].ID == "Ghost" {
			ghost = &resp.Nodes[i]
		}
	}
	if ghost == nil || ghost.Slug != "" {
		t.Errorf("phantom node = %+v, want Ghost without slug", ghost)
	}
}

func TestBacklinks(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/backlinks?target=Page+B")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Backlinks) != 1 || resp.Backlinks[0] != "Page A" {
		t.Errorf("resp = %+v", resp)
	}

	if w := get(t, router, "/backlinks"); w.Code != http.StatusBadRequest {
		t.Errorf("missing target status = %d, want 400", w.Code)
	}
}

func TestBroken(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/broken")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp BrokenResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.BrokenReferences[0].Target != "Ghost" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestFailures(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/failures")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp FailuresResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Failures[0].Path != "/src/bad.xml" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearch(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/search?q=plain")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Slug != "page-b" {
		t.Errorf("resp = %+v", resp)
	}

	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d, want 400", w.Code)
	}
}

func TestAuthToken(t *testing.T) {
	router := testEnv(t, "secret")

	if w := get(t, router, "/status"); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", w.Code)
	}
}
