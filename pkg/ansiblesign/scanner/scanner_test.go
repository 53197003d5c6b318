package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{Workers: -1}
	if err := opts.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Root != "." {
		t.Errorf("Root: got %q, want %q", opts.Root, ".")
	}
	if opts.Workers != runtime.NumCPU() {
		t.Errorf("Workers: got %d, want %d", opts.Workers, runtime.NumCPU())
	}
}

func TestScanReturnsSortedRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.txt":              "b",
		"a.txt":              "aa",
		"roles/x/tasks.yml":  "tasks",
		".git/HEAD":          "ref",
		"nested/deep/z.yaml": "z",
	})

	res, err := New(DefaultOptions(root)).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{"a.txt", "b.txt", "nested/deep/z.yaml", "roles/x/tasks.yml"}
	got := res.Paths()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d]: got %q, want %q", i, got[i], want[i])
		}
	}

	if res.FilesScanned != 4 {
		t.Errorf("FilesScanned: got %d, want 4", res.FilesScanned)
	}
	if res.TotalSize != int64(len("b")+len("aa")+len("tasks")+len("z")) {
		t.Errorf("TotalSize: got %d", res.TotalSize)
	}
	if err := res.Err(); err != nil {
		t.Errorf("unexpected scan errors: %v", err)
	}
}

func TestScanExclusions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.yml":                    "k",
		".ansible-sign/sha256sum.txt": "m",
		"build/out.bin":               "o",
		"notes.swp":                   "s",
	})

	opts := DefaultOptions(root)
	opts.Exclude = []string{".ansible-sign", "build/", "*.swp"}

	res, err := Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := res.Paths()
	if len(got) != 1 || got[0] != "keep.yml" {
		t.Errorf("got %v, want [keep.yml]", got)
	}
}

func TestScanSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"real.txt":     "data",
		"dir/file.txt": "f",
	})
	if err := os.Symlink("real.txt", filepath.Join(root, "link.txt")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink("dir", filepath.Join(root, "dirlink")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink("missing", filepath.Join(root, "dangling")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	res, err := Scan(context.Background(), DefaultOptions(root))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{"dir/file.txt", "link.txt", "real.txt"}
	got := res.Paths()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScanInvalidRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(DefaultOptions(file)).Scan(context.Background()); err == nil {
		t.Error("expected error scanning a regular file")
	}
	if _, err := New(DefaultOptions(filepath.Join(root, "nope"))).Scan(context.Background()); err == nil {
		t.Error("expected error scanning a missing directory")
	}
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(DefaultOptions(root)).Scan(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestMatchesExclusion(t *testing.T) {
	tests := []struct {
		rel     string
		pattern string
		want    bool
	}{
		{".git", ".git", true},
		{".git/objects/ab", ".git", true},
		{".gitignore", ".git", false},
		{"a/b/c.pyc", "*.pyc", true},
		{"a/b/c.py", "*.pyc", false},
		{"docs/index.md", "docs/*.md", true},
		{"x", "", false},
	}

	for _, tt := range tests {
		if got := MatchesExclusion(tt.rel, tt.pattern); got != tt.want {
			t.Errorf("MatchesExclusion(%q, %q) = %v, want %v", tt.rel, tt.pattern, got, tt.want)
		}
	}
}
