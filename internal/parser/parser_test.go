package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

var testFileTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fileInfo(name string, ft models.FileType) models.FileInfo {
	return models.FileInfo{
		FullPath:         "/src/" + name,
		RelativePath:     name,
		Name:             name,
		Type:             ft,
		ModifiedTime:     testFileTime,
		DocumentCreated:  testFileTime,
		DocumentModified: testFileTime,
	}
}

func TestForFile(t *testing.T) {
	cases := []struct {
		name    string
		file    models.FileInfo
		data    string
		wantErr bool
	}{
		{"markdown", fileInfo("a.md", models.FileTypeMarkdown), "# hi", false},
		{"mediawiki dump", fileInfo("d.xml", models.FileTypeMediaWiki), `<mediawiki><page/></mediawiki>`, false},
		{"xml but not a dump", fileInfo("feed.xml", models.FileTypeMediaWiki), `<rss version="2.0"/>`, true},
		{"tiddlywiki store", fileInfo("w.html", models.FileTypeTiddlyWiki), `<html><div id="storeArea"></div></html>`, false},
		{"html but not tiddlywiki", fileInfo("p.html", models.FileTypeTiddlyWiki), `<html><body>page</body></html>`, true},
		{"dokuwiki", fileInfo("p.txt", models.FileTypeDokuWiki), "plain text", false},
		{"unknown", fileInfo("x.png", models.FileTypeUnknown), "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ForFile(tc.file, []byte(tc.data))
			if tc.wantErr {
				if !errors.Is(err, apperr.ErrParse) {
					t.Fatalf("err = %v, want ErrParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForFile: %v", err)
			}
		})
	}
}

func TestStem(t *testing.T) {
	if got := stem("my-page.md"); got != "my-page" {
		t.Fatalf("stem = %q, want my-page", got)
	}
	if got := stem("noext"); got != "noext" {
		t.Fatalf("stem = %q, want noext", got)
	}
}
