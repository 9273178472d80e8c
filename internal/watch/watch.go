// Package watch turns filesystem write activity into tracker events, for
// editors that have no stint plugin. Each write inside the project tree is
// submitted as an edit event whose editor handle is the file path.
package watch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/stint/internal/dispatch"
)

// Watch starts a recursive fsnotify watcher on workDir and submits edit
// events to the dispatcher until ctx is cancelled. Ignored paths produce no
// events.
func Watch(ctx context.Context, workDir string, d *dispatch.Dispatcher, ignorePatterns []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Walk the directory tree and add a watcher for every subdirectory.
	if err := filepath.WalkDir(workDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if isIgnored(event.Name, workDir, ignorePatterns) {
				continue
			}

			// If a new directory was created, watch it too.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}

			// A file write is one edit of unknown magnitude; count it as a
			// single operation lower bound.
			d.Submit(dispatch.Event{
				Type:     dispatch.TypeEdit,
				Editor:   event.Name,
				ModCount: 1,
			})

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}

// isIgnored reports whether path matches any of the given glob patterns,
// checked against the base name, the path relative to workDir, and the full
// path.
func isIgnored(path, workDir string, patterns []string) bool {
	rel := path
	if workDir != "" {
		if r, err := filepath.Rel(workDir, path); err == nil {
			rel = r
		}
	}
	base := filepath.Base(path)

	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}
