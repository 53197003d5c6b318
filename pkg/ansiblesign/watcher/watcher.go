// Package watcher watches a project tree and reports batches of changes once
// the tree has been quiet for a debounce period.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/scanner"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches directories under a root for changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	exclude  []string
	debounce time.Duration
	logger   *logging.Logger

	mu     sync.Mutex
	paths  map[string]bool
	closed bool
}

// Options configures a Watcher.
type Options struct {
	// Exclude lists patterns (scanner.MatchesExclusion syntax) whose
	// directories are not watched. Nil means scanner.DefaultExclusions.
	Exclude []string

	// Debounce is the quiet period before a batch is delivered.
	Debounce time.Duration

	Logger *logging.Logger
}

// New creates a Watcher.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.Exclude == nil {
		opts.Exclude = scanner.DefaultExclusions
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logging.Get("watcher")
	}

	return &Watcher{
		watcher:  fsw,
		exclude:  opts.Exclude,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		paths:    make(map[string]bool),
	}, nil
}

// Watch adds root and every directory below it. Symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absRoot); err != nil {
		return err
	}

	w.mu.Lock()
	w.root = absRoot
	w.mu.Unlock()

	return w.addTree(absRoot)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.exclude {
		if scanner.MatchesExclusion(rel, pattern) {
			return true
		}
	}
	return false
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Watched returns the number of directories being watched.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Run delivers changed paths to onChange, one sorted batch per quiet period,
// until ctx is cancelled or the watcher is closed. New directories are
// watched as they appear.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.excluded(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.handleCreate(event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.forget(event.Name)
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			clear(pending)

			w.logger.Debug("change batch", "paths", len(batch))
			if onChange != nil {
				onChange(batch)
			}
		}
	}
}

func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
		return
	}
	_ = w.addTree(path)
}

// forget drops bookkeeping for a removed directory. fsnotify removes the
// underlying watch itself.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			delete(w.paths, p)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}

func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
