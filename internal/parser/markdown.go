package parser

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// MarkdownParser handles plain Markdown notes, with or without YAML
// frontmatter. One file is one document.
type MarkdownParser struct{}

// Parse splits frontmatter from the body and derives the document title from
// frontmatter, the first H1 heading, or the file name, in that order.
func (p *MarkdownParser) Parse(file models.FileInfo, data []byte) ([]*models.Document, error) {
	fm, body := splitFrontmatter(data)

	title := deriveTitle(fm, body)
	if title == "" {
		title = stem(file.Name)
	}

	doc := &models.Document{
		Title:      title,
		Body:       body,
		Format:     models.FileTypeMarkdown,
		SourcePath: file.RelativePath,
		Tags:       extractTags(body, fm),
		Created:    frontmatterTime(fm, file.DocumentCreated, "created", "date"),
		Modified:   frontmatterTime(fm, file.DocumentModified, "modified", "updated"),
	}
	return []*models.Document{doc}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Missing, unterminated, or invalid frontmatter means
// the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}

	return fm, body
}

// extractTags collects tags from the frontmatter "tags" field and inline
// #tags from the body, deduplicated in that order.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case string:
			for _, s := range strings.Split(v, ",") {
				add(s)
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// frontmatterTime reads the first usable timestamp under the given keys.
// yaml.v3 resolves bare dates to time.Time already; quoted values are parsed
// against the common layouts. Anything else falls back to the file time.
func frontmatterTime(fm map[string]interface{}, fallback time.Time, keys ...string) time.Time {
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	for _, k := range keys {
		switch v := fm[k].(type) {
		case time.Time:
			return v
		case string:
			for _, layout := range layouts {
				if t, err := time.Parse(layout, v); err == nil {
					return t
				}
			}
		}
	}
	return fallback
}
