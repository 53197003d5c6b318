package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(Options{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	return w
}

func TestWatchSkipsExcluded(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"roles/web", ".git/objects"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w := newWatcher(t, root)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.paths[filepath.Join(root, "roles", "web")] {
		t.Error("Watch() did not track nested directory")
	}
	if w.paths[filepath.Join(root, ".git")] || w.paths[filepath.Join(root, ".git", "objects")] {
		t.Error("Watch() tracked an excluded directory")
	}
}

func TestWatchMissingRoot(t *testing.T) {
	w, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Watch() expected error for missing root")
	}
}

func TestRunDebouncesIntoOneBatch(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan []string, 4)
	go w.Run(ctx, func(changed []string) { batches <- changed })

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case batch := <-batches:
		if len(batch) != 3 {
			t.Errorf("batch = %v, want 3 paths", batch)
		}
	case <-ctx.Done():
		t.Fatal("no batch delivered")
	}
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan []string, 8)
	go w.Run(ctx, func(changed []string) { batches <- changed })

	sub := filepath.Join(root, "roles")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	<-batches

	if err := os.WriteFile(filepath.Join(sub, "main.yml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for {
		select {
		case batch := <-batches:
			for _, p := range batch {
				if p == filepath.Join(sub, "main.yml") {
					return
				}
			}
		case <-ctx.Done():
			t.Fatal("change in new directory was not reported")
		}
	}
}

func TestIsSubPath(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		path, parent string
		want         bool
	}{
		{"a" + sep + "b", "a", true},
		{"a", "a", false},
		{"ab", "a", false},
	}
	for _, tt := range tests {
		if got := isSubPath(tt.path, tt.parent); got != tt.want {
			t.Errorf("isSubPath(%q, %q) = %v, want %v", tt.path, tt.parent, got, tt.want)
		}
	}
}
