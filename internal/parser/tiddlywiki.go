package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// tiddlyTimeLayout covers the YYYYMMDDHHMMSS prefix of TiddlyWiki stamps;
// the trailing milliseconds are cut before parsing.
const tiddlyTimeLayout = "20060102150405"

// TiddlyWikiParser handles single-file TiddlyWiki HTML exports. Every tiddler
// in the store area becomes a document; system tiddlers ($:/ prefix) are
// skipped.
type TiddlyWikiParser struct{}

func (p *TiddlyWikiParser) Parse(file models.FileInfo, data []byte) ([]*models.Document, error) {
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parser: tiddlywiki %s: %v: %w", file.Name, err, apperr.ErrParse)
	}

	var docs []*models.Document
	root.Find("div#storeArea > div[title]").Each(func(_ int, sel *goquery.Selection) {
		title, _ := sel.Attr("title")
		title = strings.TrimSpace(title)
		if title == "" || strings.HasPrefix(title, "$:/") {
			return
		}

		tagsAttr, _ := sel.Attr("tags")
		createdAttr, _ := sel.Attr("created")
		modifiedAttr, _ := sel.Attr("modified")

		docs = append(docs, &models.Document{
			Title:      title,
			Body:       sel.Find("pre").First().Text(),
			Format:     models.FileTypeTiddlyWiki,
			SourcePath: file.RelativePath,
			Tags:       parseTiddlerTags(tagsAttr),
			Created:    tiddlyTime(createdAttr, file.DocumentCreated),
			Modified:   tiddlyTime(modifiedAttr, file.DocumentModified),
		})
	})

	return docs, nil
}

// parseTiddlerTags splits a tiddler tags attribute: space-separated names
// with multi-word names wrapped in double brackets, e.g.
// `work [[project notes]] urgent`.
func parseTiddlerTags(attr string) []string {
	var tags []string
	rest := attr
	for {
		start := strings.Index(rest, "[[")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "]]")
		if end < 0 {
			break
		}
		name := strings.TrimSpace(rest[start+2 : start+end])
		if name != "" {
			tags = append(tags, name)
		}
		rest = rest[:start] + " " + rest[start+end+2:]
	}
	for _, f := range strings.Fields(rest) {
		tags = append(tags, f)
	}
	return tags
}

func tiddlyTime(stamp string, fallback time.Time) time.Time {
	if len(stamp) < len(tiddlyTimeLayout) {
		return fallback
	}
	t, err := time.ParseInLocation(tiddlyTimeLayout, stamp[:len(tiddlyTimeLayout)], time.UTC)
	if err != nil {
		return fallback
	}
	return t
}
