package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/raido/internal/models"
)

func writeFile(t *testing.T, dir, name, body string) string {
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

func TestDetectType(t *testing.T) {
	cases := []struct {
		name string
		want models.FileType
	}{
		{"note.md", models.FileTypeMarkdown},
		{"note.MARKDOWN", models.FileTypeMarkdown},
		{"dump.xml", models.FileTypeMediaWiki},
		{"wiki.html", models.FileTypeTiddlyWiki},
		{"wiki.htm", models.FileTypeTiddlyWiki},
		{"page.txt", models.FileTypeDokuWiki},
		{"image.png", models.FileTypeUnknown},
		{"noext", models.FileTypeUnknown},
	}
	for _, tc := range cases {
		if got := DetectType(tc.name); got != tc.want {
			t.Errorf("DetectType(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "# b")
	writeFile(t, dir, "a.md", "# a")
	writeFile(t, dir, filepath.Join("sub", "dump.xml"), "<mediawiki/>")
	writeFile(t, dir, "skipme.png", "binary")
	writeFile(t, dir, filepath.Join(".hidden", "secret.md"), "# hidden")

	// identical mtimes force the relative-path tiebreak
	now := time.Now()
	for _, name := range []string{"a.md", "b.md", filepath.Join("sub", "dump.xml")} {
		if err := os.Chtimes(filepath.Join(dir, name), now, now); err != nil {
			t.Fatal(err)
		}
	}

	files, err := New(dir, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3: %+v", len(files), files)
	}

	wantOrder := []string{"a.md", "b.md", filepath.Join("sub", "dump.xml")}
	for i, want := range wantOrder {
		if files[i].RelativePath != want {
			t.Errorf("files[%d].RelativePath = %q, want %q", i, files[i].RelativePath, want)
		}
	}
	if files[2].Type != models.FileTypeMediaWiki {
		t.Errorf("dump.xml type = %q, want mediawiki", files[2].Type)
	}
	if files[0].DocumentCreated.IsZero() {
		t.Error("DocumentCreated not populated from file info")
	}
}

func TestScanOrderByModTime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "newer.md", "x")
	writeFile(t, dir, "older.md", "x")

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "older.md"), old, old); err != nil {
		t.Fatal(err)
	}

	files, err := New(dir, nil).Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if files[0].Name != "older.md" || files[1].Name != "newer.md" {
		t.Fatalf("order = [%s %s], want [older.md newer.md]", files[0].Name, files[1].Name)
	}
}

func TestScanMissingRoot(t *testing.T) {
	files, err := New(filepath.Join(t.TempDir(), "nope"), nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("missing root should not error, got %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("files = %v, want none", files)
	}
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(dir, nil).Scan(ctx); err == nil {
		t.Fatal("Scan with cancelled context succeeded, want error")
	}
}
