// Package attach copies the attachments referenced by converted documents
// (images, PDFs, other binary files) from the source tree into the output
// vault's attachments folder.
package attach

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/wikilink"
)

// Dir is the vault folder attachments are copied into.
const Dir = "attachments"

var linkTargetRe = regexp.MustCompile(`!?\[[^\]]*\]\(([^)\s]+)\)`)

// Result aggregates one copy pass.
type Result struct {
	Copied  int      `json:"copied"`
	Skipped int      `json:"skipped"`
	Missing []string `json:"missing,omitempty"`
}

// Copier locates attachment files under the source root and writes them into
// the vault. The source tree is indexed by base name once, on first copy.
type Copier struct {
	sourceRoot string
	vault      storage.Provider
	log        *slog.Logger
	index      map[string]string // lowercased base name -> full source path
}

// New returns a copier reading from sourceRoot and writing through vault.
func New(sourceRoot string, vault storage.Provider, log *slog.Logger) *Copier {
	if log == nil {
		log = slog.Default()
	}
	return &Copier{sourceRoot: sourceRoot, vault: vault, log: log}
}

// Collect returns the attachment targets referenced by a converted body:
// link and image targets that are plain relative file names, excluding
// document links (.md) and external URLs.
func Collect(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range linkTargetRe.FindAllStringSubmatch(body, -1) {
		target := m[1]
		if wikilink.IsExternal(target) || strings.HasPrefix(target, "#") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(target))
		if ext == "" || ext == ".md" {
			continue
		}
		key := strings.ToLower(target)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, target)
	}
	return out
}

// CopyAll copies each named attachment into the vault. Files already present
// with identical content are skipped; names not found under the source root
// are reported as missing. Individual copy errors are logged and counted as
// missing rather than failing the pass.
func (c *Copier) CopyAll(ctx context.Context, names []string) (Result, error) {
	var res Result
	if len(names) == 0 {
		return res, nil
	}
	if err := c.ensureIndex(); err != nil {
		return res, err
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		src, ok := c.index[strings.ToLower(filepath.Base(name))]
		if !ok {
			res.Missing = append(res.Missing, name)
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			c.log.Warn("attachment unreadable", "name", name, "error", err)
			res.Missing = append(res.Missing, name)
			continue
		}

		dest := filepath.Join(Dir, filepath.Base(src))
		if existing, err := c.vault.Read(dest); err == nil && checksum.Sum(existing) == checksum.Sum(data) {
			res.Skipped++
			continue
		}
		if err := c.vault.Write(dest, data); err != nil {
			c.log.Warn("attachment copy failed", "name", name, "error", err)
			res.Missing = append(res.Missing, name)
			continue
		}
		res.Copied++
	}

	sort.Strings(res.Missing)
	return res, nil
}

// ensureIndex walks the source tree once, mapping base names to paths.
// Markdown and wiki page files are not attachments and stay out of the map;
// on duplicate names the first path found wins.
func (c *Copier) ensureIndex() error {
	if c.index != nil {
		return nil
	}
	index := make(map[string]string)
	err := filepath.WalkDir(c.sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != c.sourceRoot {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".md", ".markdown", ".xml", ".html", ".htm", ".txt":
			return nil
		}
		key := strings.ToLower(d.Name())
		if _, dup := index[key]; !dup {
			index[key] = path
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("attach: index %s: %w", c.sourceRoot, err)
	}
	c.index = index
	return nil
}
