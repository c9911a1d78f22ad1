// Package watcher turns filesystem notifications below a workspace into
// debounced batches of changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fulmenhq/twproj/internal/reactor"
	"github.com/fulmenhq/twproj/pkg/ignore"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 150 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the workspace must be quiet before a batch is
	// delivered.
	Debounce time.Duration
	// Exclude holds globs relative to the base. Matching directories are not
	// watched.
	Exclude []string
	// Ignore, when set, skips gitignored paths.
	Ignore *ignore.Matcher
}

// Handler receives one batch at a time. The next batch is collected while it
// runs.
type Handler func(ctx context.Context, events []reactor.Event) error

// Watcher watches a directory tree.
type Watcher struct {
	base     string
	debounce time.Duration
	exclude  []string
	ignore   *ignore.Matcher
	fsw      *fsnotify.Watcher
}

// New creates a watcher for the tree below base.
func New(base string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		base:     pathutil.Normalize(base),
		debounce: debounce,
		exclude:  pathfinder.NormalizeExcludes(opts.Exclude),
		ignore:   opts.Ignore,
		fsw:      fsw,
	}
	if err := w.addTree(pathutil.ToOS(w.base)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying notifier.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// WatchedPaths lists the watched directories.
func (w *Watcher) WatchedPaths() []string {
	return w.fsw.WatchList()
}

// Run delivers batches to handle until ctx is done. A handler error stops
// the loop and is returned.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	pending := newBatch()
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.record(pending, ev) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", logger.Err(err))

		case <-timer.C:
			events := pending.events()
			if len(events) == 0 {
				continue
			}
			logger.Debug("delivering file changes", logger.Int("events", len(events)))
			if err := handle(ctx, events); err != nil {
				return err
			}
		}
	}
}

// record folds ev into pending and reports whether it was kept. New
// directories are watched and their existing files reported as created.
func (w *Watcher) record(pending *batch, ev fsnotify.Event) bool {
	kind, ok := kindOf(ev.Op)
	if !ok {
		return false
	}
	p := pathutil.FromOS(ev.Name)

	if kind == reactor.Created {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.skipped(p, true) {
				return false
			}
			if err := w.addTree(ev.Name); err != nil {
				logger.Warn("cannot watch new directory", logger.String("path", p), logger.Err(err))
			}
			w.reportFiles(pending, ev.Name)
			return true
		}
	}
	if w.skipped(p, false) {
		return false
	}
	pending.add(p, kind)
	return true
}

// reportFiles adds the files already present below a new directory; they can
// be written before the directory is watched.
func (w *Watcher) reportFiles(pending *batch, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		np := pathutil.FromOS(p)
		if d.IsDir() {
			if p != dir && w.skipped(np, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.skipped(np, false) {
			pending.add(np, reactor.Created)
		}
		return nil
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.skipped(pathutil.FromOS(p), true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			if p == root {
				return fmt.Errorf("watch %s: %w", p, err)
			}
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Debug("cannot watch directory", logger.String("path", p), logger.Err(err))
			}
		}
		return nil
	})
}

// skipped reports whether an absolute path is excluded or ignored.
func (w *Watcher) skipped(p string, isDir bool) bool {
	rel, ok := relTo(w.base, p)
	if !ok {
		return true
	}
	if pathfinder.MatchesAnyPattern(rel, w.exclude) || (isDir && pathfinder.MatchesAnyPattern(rel+"/**", w.exclude)) {
		return true
	}
	// Anything below an excluded directory is excluded too.
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if pathfinder.MatchesAnyPattern(dir, w.exclude) {
			return true
		}
	}
	return w.ignore.IsIgnored(p, isDir)
}

func relTo(base, p string) (string, bool) {
	if !pathutil.Within(base, p) {
		return "", false
	}
	rel, err := filepath.Rel(pathutil.ToOS(base), pathutil.ToOS(p))
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
