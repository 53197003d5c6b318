package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
)

// File is a regular file found under the scan root.
type File struct {
	// Path is relative to the root, using forward slashes.
	Path string
	Size int64
}

// ScanError records a path that could not be read.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ScanError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a scan. Files are sorted by path.
type Result struct {
	Root         string
	Files        []File
	DirsScanned  int64
	FilesScanned int64
	TotalSize    int64
	Elapsed      time.Duration
	Errors       []ScanError
}

// Paths returns the relative paths of all files, in sorted order.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// Err joins all scan errors, or returns nil when the scan was clean.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i := range r.Errors {
		errs[i] = r.Errors[i]
	}
	return errors.Join(errs...)
}

// Scanner performs parallel directory scanning using fastwalk.
type Scanner struct {
	opts Options

	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
	bytesScanned atomic.Int64

	errors   []ScanError
	errorsMu sync.Mutex

	results   []File
	resultsMu sync.Mutex

	// root is the resolved absolute path being scanned.
	root string
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	_ = opts.Validate()

	return &Scanner{
		opts:    opts,
		errors:  make([]ScanError, 0),
		results: make([]File, 0),
	}
}

// Scan walks the tree and returns every regular file not excluded.
// It blocks until complete or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	root, err := s.validateRoot()
	if err != nil {
		return nil, err
	}
	s.root = root

	if err := s.executeWalk(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(s.results, func(i, j int) bool {
		return s.results[i].Path < s.results[j].Path
	})
	sort.Slice(s.errors, func(i, j int) bool {
		return s.errors[i].Path < s.errors[j].Path
	})

	return &Result{
		Root:         root,
		Files:        s.results,
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		TotalSize:    s.bytesScanned.Load(),
		Elapsed:      time.Since(startTime),
		Errors:       s.errors,
	}, nil
}

func (s *Scanner) executeWalk(ctx context.Context) error {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: s.opts.Workers,
	}

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := fastwalk.Walk(&conf, s.root, s.walkCallback(walkCtx.Done()))
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, fastwalk.ErrSkipFiles) {
		return err
	}
	return nil
}

// validateRoot resolves the root path to absolute and verifies it is a directory.
func (s *Scanner) validateRoot() (string, error) {
	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", root, os.ErrInvalid)
	}

	return root, nil
}

func (s *Scanner) walkCallback(done <-chan struct{}) fs.WalkDirFunc {
	return func(fullPath string, d fs.DirEntry, err error) error {
		select {
		case <-done:
			return fastwalk.ErrSkipFiles
		default:
		}

		rel := s.relative(fullPath)

		if err != nil {
			s.addError(rel, err)
			return nil
		}

		if rel != "" && s.isExcluded(rel) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			s.dirsScanned.Add(1)
		case d.Type().IsRegular():
			s.processFile(rel, d)
		case d.Type()&fs.ModeSymlink != 0 && s.opts.FollowFileLinks:
			s.processLink(fullPath, rel)
		}

		return nil
	}
}

func (s *Scanner) processFile(rel string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		s.addError(rel, err)
		return
	}
	s.addFile(rel, info.Size())
}

// processLink keeps symlinks whose target is a regular file.
func (s *Scanner) processLink(fullPath, rel string) {
	info, err := os.Stat(fullPath)
	if err != nil {
		// Dangling links are not project files.
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		s.addError(rel, err)
		return
	}
	if info.Mode().IsRegular() {
		s.addFile(rel, info.Size())
	}
}

func (s *Scanner) addFile(rel string, size int64) {
	s.filesScanned.Add(1)
	s.bytesScanned.Add(size)

	s.resultsMu.Lock()
	s.results = append(s.results, File{Path: rel, Size: size})
	s.resultsMu.Unlock()
}

// relative converts a walked path to a slash-separated path relative to root.
func (s *Scanner) relative(fullPath string) string {
	if fullPath == s.root {
		return ""
	}
	rel := strings.TrimPrefix(fullPath, s.root+string(filepath.Separator))
	return filepath.ToSlash(rel)
}

func (s *Scanner) addError(rel string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, ScanError{Path: rel, Err: err})
	s.errorsMu.Unlock()
}

func (s *Scanner) isExcluded(rel string) bool {
	for _, pattern := range s.opts.Exclude {
		if MatchesExclusion(rel, pattern) {
			return true
		}
	}
	return false
}

// MatchesExclusion reports whether the slash-separated relative path rel is
// covered by pattern.
func MatchesExclusion(rel, pattern string) bool {
	pattern = strings.Trim(filepath.ToSlash(pattern), "/")
	if pattern == "" {
		return false
	}

	if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
		return true
	}

	if matched, err := path.Match(pattern, path.Base(rel)); err == nil && matched {
		return true
	}

	if matched, err := path.Match(pattern, rel); err == nil && matched {
		return true
	}

	return false
}

// Scan is a convenience wrapper that scans root with opts and fails on the
// first unreadable path.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	res, err := New(opts).Scan(ctx)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", res.Root, err)
	}
	return res, nil
}
