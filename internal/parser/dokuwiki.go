package parser

import (
	"regexp"
	"strings"

	"github.com/starford/raido/internal/models"
)

var (
	dokuHeadingRe = regexp.MustCompile(`(?m)^======\s*(.+?)\s*======\s*$`)
	dokuTagRe     = regexp.MustCompile(`\{\{tag>([^}]*)\}\}[ \t]*\n?`)
	dokuMediaRe   = regexp.MustCompile(`\{\{\s*([^}|>]+?)\s*(?:\|([^}]*))?\}\}`)
)

// DokuWikiParser handles DokuWiki page files. One file is one document; the
// title comes from the first level-one heading, falling back to the file
// name. Tag-plugin markers ({{tag>a b}}) become document tags; media
// inclusions ({{ns:image.png|caption}}) are normalized to Markdown image
// references so the attachment pass can find them.
type DokuWikiParser struct{}

func (p *DokuWikiParser) Parse(file models.FileInfo, data []byte) ([]*models.Document, error) {
	body := string(data)

	title := ""
	if m := dokuHeadingRe.FindStringSubmatch(body); m != nil {
		title = strings.TrimSpace(m[1])
	}
	if title == "" {
		title = stem(file.Name)
	}

	var tags []string
	body = dokuTagRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := dokuTagRe.FindStringSubmatch(m)
		for _, f := range strings.Fields(sub[1]) {
			tags = append(tags, f)
		}
		return ""
	})

	body = dokuMediaRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := dokuMediaRe.FindStringSubmatch(m)
		name := sub[1]
		// strip namespace path and sizing query: wiki:images:logo.png?200
		if i := strings.LastIndex(name, ":"); i >= 0 {
			name = name[i+1:]
		}
		if i := strings.Index(name, "?"); i >= 0 {
			name = name[:i]
		}
		return "![" + strings.TrimSpace(sub[2]) + "](" + name + ")"
	})

	doc := &models.Document{
		Title:      title,
		Body:       body,
		Format:     models.FileTypeDokuWiki,
		SourcePath: file.RelativePath,
		Tags:       tags,
		Created:    file.DocumentCreated,
		Modified:   file.DocumentModified,
	}
	return []*models.Document{doc}, nil
}
