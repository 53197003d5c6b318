package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultMaxSize is the size at which the log file rotates when unset.
const DefaultMaxSize = 5 * 1024 * 1024

// rotatedStamp is inserted before the extension of a rotated file.
const rotatedStamp = "2006-01-02-150405.000000000"

// RotationConfig bounds the log file and its rotated copies.
type RotationConfig struct {
	// MaxSize in bytes. Zero or negative uses DefaultMaxSize.
	MaxSize int64

	// MaxAge in days for rotated files. Zero keeps them regardless of age.
	MaxAge int

	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int
}

// DefaultRotationConfig returns the rotation used when nothing is configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    DefaultMaxSize,
		MaxAge:     14,
		MaxBackups: 3,
	}
}

// RotatingWriter appends to a log file and moves it aside once it would grow
// past MaxSize. Writes hold an advisory lock on the file so that two
// ansible-sign runs sharing a log do not interleave lines.
type RotatingWriter struct {
	path string
	cfg  RotationConfig

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingWriter opens path for appending, creating parent directories,
// and prunes rotated files left by earlier runs.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune(time.Now())
	return w, nil
}

// Write appends p, rotating first when p would push the file past MaxSize.
// A single write larger than MaxSize still lands in one file.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.cfg.MaxSize {
		if err := w.rotate(time.Now()); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := w.lock(); err != nil {
		return 0, fmt.Errorf("locking log file: %w", err)
	}
	defer w.unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing log file: %w", err)
	}
	return n, nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing log file: %w", err)
	}
	return f.Close()
}

// Path returns the active log file path.
func (w *RotatingWriter) Path() string {
	return w.path
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *RotatingWriter) rotate(now time.Time) error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	w.file = nil

	if err := os.Rename(w.path, rotatedName(w.path, now)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}
	if err := w.open(); err != nil {
		return err
	}
	w.prune(now)
	return nil
}

// prune removes rotated files beyond MaxBackups or older than MaxAge days.
// Errors are ignored.
func (w *RotatingWriter) prune(now time.Time) {
	backups := w.backups()

	// Newest first. The timestamp in the name sorts chronologically.
	slices.Sort(backups)
	slices.Reverse(backups)

	cutoff := now.AddDate(0, 0, -w.cfg.MaxAge)
	for i, path := range backups {
		expired := false
		if w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups {
			expired = true
		} else if w.cfg.MaxAge > 0 {
			if info, err := os.Stat(path); err == nil && info.ModTime().Before(cutoff) {
				expired = true
			}
		}
		if expired {
			_ = os.Remove(path)
		}
	}
}

// backups lists rotated copies of the log file.
func (w *RotatingWriter) backups() []string {
	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(w.path, ext)

	matches, err := filepath.Glob(stem + ".*" + ext)
	if err != nil {
		return nil
	}
	return slices.DeleteFunc(matches, func(path string) bool {
		stamp := strings.TrimSuffix(strings.TrimPrefix(path, stem+"."), ext)
		_, err := time.Parse(rotatedStamp, stamp)
		return path == w.path || err != nil
	})
}

// rotatedName inserts a timestamp before the extension, as in
// ansible-sign.2026-01-20-150405.000000000.log.
func rotatedName(path string, at time.Time) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.%s%s", strings.TrimSuffix(path, ext), at.Format(rotatedStamp), ext)
}
