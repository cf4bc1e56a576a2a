// Package watch re-runs the migration when the source tree changes. Events
// are debounced: a burst of edits (an export tool rewriting many files)
// triggers one rerun after the tree settles.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/scan"
)

// DefaultDebounce is how long the source tree must stay quiet before a
// change triggers a rerun.
const DefaultDebounce = 2 * time.Second

// Watch starts an fsnotify watcher on the source root and calls rerun after
// each debounced batch of changes, until ctx is cancelled. New directories
// created at runtime are added to the watch list. Only files of a
// recognized source format (and attachment files) count as changes.
func Watch(ctx context.Context, sourceRoot string, debounce time.Duration, logger *slog.Logger, rerun func(ctx context.Context)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, sourceRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", sourceRoot))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			logger.Info("watcher: source changed, re-running migration")
			rerun(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories join the watch list and count as a change.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					schedule()
					continue
				}
			}

			if !relevant(ev.Name) {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relevant reports whether a changed path should trigger a rerun: any
// recognized source format, or a non-hidden file that could be a referenced
// attachment.
func relevant(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if scan.DetectType(name) != models.FileTypeUnknown {
		return true
	}
	return filepath.Ext(name) != ""
}

// addDirsRecursive adds root and all its subdirectories to the watcher,
// skipping hidden directories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
