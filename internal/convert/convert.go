// Package convert renders parsed documents as Markdown files: source markup
// is rewritten to Markdown, references are resolved against the registry,
// and document metadata becomes YAML frontmatter.
package convert

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/resolver"
)

// LinkStyle selects how resolved references are written out.
type LinkStyle string

const (
	// LinkMarkdown rewrites references as standard Markdown links.
	LinkMarkdown LinkStyle = "markdown"
	// LinkWiki keeps the bracket syntax, pointed at slugs, for vaults that
	// read wiki links natively.
	LinkWiki LinkStyle = "wiki"
)

// Converter turns documents into output file content.
type Converter struct {
	res   *resolver.Resolver
	style LinkStyle
}

// New returns a converter writing links in the given style.
func New(res *resolver.Resolver, style LinkStyle) *Converter {
	return &Converter{res: res, style: style}
}

// frontmatter is the metadata block written at the top of every output file.
type frontmatter struct {
	Title     string    `yaml:"title"`
	Created   time.Time `yaml:"created,omitempty"`
	Modified  time.Time `yaml:"modified,omitempty"`
	Tags      []string  `yaml:"tags,omitempty"`
	Source    string    `yaml:"source,omitempty"`
	Format    string    `yaml:"format,omitempty"`
	Backlinks []string  `yaml:"backlinks,omitempty"`
}

// Convert produces the full Markdown file for one document. References are
// resolved first (recording broken targets against the document title), then
// the dialect's remaining markup is rewritten; already-resolved links come
// through the markup pass untouched.
func (c *Converter) Convert(doc *models.Document) (string, error) {
	body := doc.Body
	if c.style == LinkWiki {
		body = c.res.ResolveWiki(body, doc.Title, true)
	} else {
		body = c.res.Resolve(body, doc.Title, true)
	}

	body, err := convertBody(doc.Format, body)
	if err != nil {
		return "", fmt.Errorf("convert: %q: %w", doc.Title, err)
	}

	fm, err := yaml.Marshal(frontmatter{
		Title:     doc.Title,
		Created:   doc.Created,
		Modified:  doc.Modified,
		Tags:      doc.Tags,
		Source:    doc.SourcePath,
		Format:    string(doc.Format),
		Backlinks: doc.Backlinks,
	})
	if err != nil {
		return "", fmt.Errorf("convert: frontmatter for %q: %v: %w", doc.Title, err, apperr.ErrConvert)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n")
	return b.String(), nil
}

// convertBody rewrites source markup to Markdown. Markdown input passes
// through untouched.
func convertBody(format models.FileType, body string) (string, error) {
	switch format {
	case models.FileTypeMarkdown:
		return body, nil
	case models.FileTypeMediaWiki:
		return convertMediaWiki(body), nil
	case models.FileTypeTiddlyWiki:
		return convertTiddlyWiki(body), nil
	case models.FileTypeDokuWiki:
		return convertDokuWiki(body), nil
	default:
		return "", fmt.Errorf("unknown format %q: %w", format, apperr.ErrConvert)
	}
}
