// Package classify assigns migrated documents to PARA vault folders
// (Projects, Areas, Resources, Archives) from their tags and age. The
// decision is per document; nothing here looks across the corpus.
package classify

import (
	"strings"
	"time"

	"github.com/starford/raido/internal/models"
)

// Standard vault folders.
const (
	FolderProjects  = "Projects"
	FolderAreas     = "Areas"
	FolderResources = "Resources"
	FolderArchives  = "Archives"
)

// Rule maps one tag to a vault folder. Tag comparison is case-insensitive.
type Rule struct {
	Tag    string `yaml:"tag"`
	Folder string `yaml:"folder"`
}

// DefaultRules covers the common tag families. First match wins, so custom
// rules prepended by configuration take priority.
func DefaultRules() []Rule {
	return []Rule{
		{Tag: "project", Folder: FolderProjects},
		{Tag: "projects", Folder: FolderProjects},
		{Tag: "area", Folder: FolderAreas},
		{Tag: "areas", Folder: FolderAreas},
		{Tag: "resource", Folder: FolderResources},
		{Tag: "resources", Folder: FolderResources},
		{Tag: "reference", Folder: FolderResources},
		{Tag: "archive", Folder: FolderArchives},
		{Tag: "archived", Folder: FolderArchives},
	}
}

// Classifier applies a rule list plus an optional staleness cutoff.
type Classifier struct {
	rules        []Rule
	archiveAfter time.Duration
}

// New returns a classifier. A zero archiveAfter disables age-based archiving.
func New(rules []Rule, archiveAfter time.Duration) *Classifier {
	return &Classifier{rules: rules, archiveAfter: archiveAfter}
}

// Folder returns the vault folder for a document: the first tag rule that
// matches, else Archives when the document is older than the cutoff, else
// the vault root (empty string).
func (c *Classifier) Folder(doc *models.Document) string {
	for _, r := range c.rules {
		for _, tag := range doc.Tags {
			if strings.EqualFold(tag, r.Tag) {
				return r.Folder
			}
		}
	}
	if c.archiveAfter > 0 && !doc.Modified.IsZero() && time.Since(doc.Modified) > c.archiveAfter {
		return FolderArchives
	}
	return ""
}
