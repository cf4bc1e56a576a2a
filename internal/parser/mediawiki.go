package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

var (
	categoryRe = regexp.MustCompile(`(?i)\[\[category:([^\]|]+)(?:\|[^\]]*)?\]\][ \t]*\n?`)
	mediaRe    = regexp.MustCompile(`(?i)\[\[(?:file|image):([^\]|]+)(?:\|([^\]]*))?\]\]`)
)

// MediaWikiParser handles MediaWiki XML export dumps. One dump may carry any
// number of pages; each main-namespace, non-redirect page becomes a document
// whose body is the wikitext of its newest revision.
type MediaWikiParser struct{}

type mwPage struct {
	Title    string `xml:"title"`
	Ns       int    `xml:"ns"`
	Redirect *struct {
		Title string `xml:"title,attr"`
	} `xml:"redirect"`
	Revisions []mwRevision `xml:"revision"`
}

type mwRevision struct {
	Timestamp string `xml:"timestamp"`
	Text      string `xml:"text"`
}

// Parse streams through the dump so large exports are not held in memory
// twice. A dump with structural XML errors fails as a whole; individual
// empty or redirect pages are skipped silently.
func (p *MediaWikiParser) Parse(file models.FileInfo, data []byte) ([]*models.Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var docs []*models.Document

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parser: mediawiki %s: %v: %w", file.Name, err, apperr.ErrParse)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "page" {
			continue
		}

		var page mwPage
		if err := dec.DecodeElement(&page, &se); err != nil {
			return nil, fmt.Errorf("parser: mediawiki %s: %v: %w", file.Name, err, apperr.ErrParse)
		}
		if doc := p.pageDocument(page, file); doc != nil {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func (p *MediaWikiParser) pageDocument(page mwPage, file models.FileInfo) *models.Document {
	title := strings.TrimSpace(page.Title)
	if title == "" || page.Ns != 0 || page.Redirect != nil || len(page.Revisions) == 0 {
		return nil
	}

	latest := page.Revisions[len(page.Revisions)-1]
	body := normalizeMedia(latest.Text)
	body, tags := splitCategories(body)

	created := revisionTime(page.Revisions[0].Timestamp, file.DocumentCreated)
	modified := revisionTime(latest.Timestamp, file.DocumentModified)

	return &models.Document{
		Title:      title,
		Body:       body,
		Format:     models.FileTypeMediaWiki,
		SourcePath: file.RelativePath,
		Tags:       tags,
		Created:    created,
		Modified:   modified,
	}
}

// normalizeMedia rewrites [[File:x.png|...|caption]] inclusions to Markdown
// image syntax before reference extraction ever sees them; File: targets are
// attachments, not pages.
func normalizeMedia(text string) string {
	return mediaRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := mediaRe.FindStringSubmatch(m)
		name := strings.TrimSpace(sub[1])
		caption := ""
		if parts := strings.Split(sub[2], "|"); len(parts) > 0 {
			caption = strings.TrimSpace(parts[len(parts)-1])
		}
		switch c := strings.ToLower(caption); {
		case c == "thumb", c == "frame", c == "frameless", c == "left", c == "right",
			c == "center", c == "none", c == "border", strings.HasSuffix(c, "px"):
			caption = ""
		}
		return "![" + caption + "](" + name + ")"
	})
}

// splitCategories pulls [[Category:X]] markers out of wikitext. Categories
// become tags; leaving them in the body would read as references to pages
// that never exist.
func splitCategories(text string) (string, []string) {
	var tags []string
	seen := make(map[string]struct{})
	body := categoryRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := categoryRe.FindStringSubmatch(m)
		name := strings.TrimSpace(sub[1])
		if name != "" {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				tags = append(tags, name)
			}
		}
		return ""
	})
	body = strings.TrimRight(body, "\n")
	if body != "" {
		body += "\n"
	}
	return body, tags
}

func revisionTime(ts string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	return fallback
}
