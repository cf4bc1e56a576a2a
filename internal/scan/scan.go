// Package scan discovers migratable files under a source root and classifies
// them by format.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
)

// DetectType maps a file name to its source format by extension. Files of
// unrecognized type come back as FileTypeUnknown and are not migrated.
func DetectType(name string) models.FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return models.FileTypeMarkdown
	case ".xml":
		return models.FileTypeMediaWiki
	case ".html", ".htm":
		return models.FileTypeTiddlyWiki
	case ".txt":
		return models.FileTypeDokuWiki
	default:
		return models.FileTypeUnknown
	}
}

// Scanner walks a source tree once per run.
type Scanner struct {
	root string
	log  *slog.Logger
}

// New returns a scanner rooted at dir.
func New(dir string, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{root: dir, log: log}
}

// Scan returns every supported file under the root, ordered by document
// creation time (file modification time at this stage) with the relative
// path as tiebreaker, so runs over the same tree process files in the same
// order. Hidden directories are skipped; a missing root yields an empty
// result, not an error. Scan stops early when ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) ([]models.FileInfo, error) {
	if _, err := os.Stat(s.root); errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("source root does not exist", "root", s.root)
		return nil, nil
	}

	var files []models.FileInfo
	skipped := 0

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ft := DetectType(d.Name())
		if ft == models.FileTypeUnknown {
			skipped++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("scan: stat %s: %w", path, err)
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("scan: relativize %s: %w", path, err)
		}
		files = append(files, models.FileInfo{
			FullPath:         path,
			RelativePath:     rel,
			Name:             d.Name(),
			Type:             ft,
			ModifiedTime:     info.ModTime(),
			DocumentCreated:  info.ModTime(),
			DocumentModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: walk %s: %w", s.root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].DocumentCreated.Equal(files[j].DocumentCreated) {
			return files[i].DocumentCreated.Before(files[j].DocumentCreated)
		}
		return files[i].RelativePath < files[j].RelativePath
	})

	s.log.Debug("scan complete", "root", s.root, "files", len(files), "skipped", skipped)
	return files, nil
}
