package checksum

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/digest"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
)

const manifestIn = "include a.txt b.txt\nrecursive-include roles *.yml\n"

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "MANIFEST.in", manifestIn)
	writeFile(t, root, "a.txt", "alpha\n")
	writeFile(t, root, "b.txt", "beta\n")
	writeFile(t, root, "roles/web/tasks/main.yml", "- name: web\n")
	writeFile(t, root, "roles/db/tasks/main.yml", "- name: db\n")
	writeFile(t, root, "scratch.tmp", "not declared")
	return root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	m, err := New().Generate(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.txt", "roles/db/tasks/main.yml", "roles/web/tasks/main.yml"}, m.Paths())
	for _, rec := range m.Records {
		want, _, err := digest.HashFile(digest.Default(), filepath.Join(root, filepath.FromSlash(rec.Path)))
		require.NoError(t, err)
		assert.Equal(t, want, rec.Digest, rec.Path)
	}
}

func TestGenerateIsDeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "MANIFEST.in", "graft files\n")
	for i := range 40 {
		writeFile(t, root, fmt.Sprintf("files/%02d/data.bin", i), fmt.Sprintf("payload %d", i))
	}

	first, err := New(WithWorkers(1)).Generate(context.Background(), root)
	require.NoError(t, err)

	for _, workers := range []int{2, 7, 32} {
		again, err := New(WithWorkers(workers)).Generate(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, first.Serialize(), again.Serialize(), "workers=%d", workers)
	}
}

func TestGenerateMissingManifestIn(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha\n")

	_, err := New().Generate(context.Background(), root)
	assert.ErrorIs(t, err, filelist.ErrNotFound)
}

func TestGenerateMissingDeclaredFile(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))

	_, err := New().Generate(context.Background(), root)
	require.Error(t, err)

	var readErr *FileReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "b.txt", readErr.Path)
	assert.ErrorIs(t, err, ErrFileRead)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGenerateNeverRecordsPathsOutsideRoot(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	writeFile(t, parent, "secret.txt", "outside\n")
	root := filepath.Join(parent, "project")
	writeFile(t, root, "MANIFEST.in", "include a.txt ../secret.txt\n")
	writeFile(t, root, "a.txt", "alpha\n")

	m, err := New().Generate(context.Background(), root)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, filelist.ErrInvalidDirective)
}

func TestGenerateSkipsIncludedDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "MANIFEST.in", "include a.txt docs\n")
	writeFile(t, root, "a.txt", "alpha\n")
	writeFile(t, root, "docs/x.md", "# docs\n")

	m, err := New().Generate(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, m.Paths())

	parsed, err := Parse(digest.Default(), m.Serialize())
	require.NoError(t, err)
	assert.Equal(t, m.Records, parsed.Records)
}

func TestGenerateReportsFirstUnreadableFileInDeclaredOrder(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))

	for _, workers := range []int{1, 4, 16} {
		_, err := New(WithWorkers(workers)).Generate(context.Background(), root)

		var readErr *FileReadError
		require.True(t, errors.As(err, &readErr), "workers=%d: got %v", workers, err)
		assert.Equal(t, "a.txt", readErr.Path, "workers=%d", workers)
	}
}

func TestVerifyUnchangedTree(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	engine := New(WithWorkers(4))

	m, err := engine.Generate(context.Background(), root)
	require.NoError(t, err)

	outcome, err := engine.VerifyRoot(context.Background(), root, m)
	require.NoError(t, err)
	assert.True(t, outcome.Success())
	assert.Equal(t, 4, outcome.Files)
	assert.Positive(t, outcome.Bytes)
}

func TestVerifyAfterParse(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	engine := New()

	m, err := engine.Generate(context.Background(), root)
	require.NoError(t, err)

	parsed, err := Parse(digest.Default(), m.Serialize())
	require.NoError(t, err)

	outcome, err := engine.VerifyRoot(context.Background(), root, parsed)
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, outcome.Kind)
}

func TestVerifyStructuralMismatchPrecedesHashing(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	engine := New()

	m, err := engine.Generate(context.Background(), root)
	require.NoError(t, err)

	// Drop b.txt from the manifest and corrupt a.txt. The structural
	// problem must win even though a.txt would also mismatch.
	m.Records = m.Records[:1:1]
	m.Records = append(m.Records, Record{Digest: m.Records[0].Digest, Path: "roles/db/tasks/main.yml"})
	writeFile(t, root, "a.txt", "tampered\n")

	declared := []string{"a.txt", "b.txt", "roles/db/tasks/main.yml"}
	outcome, err := engine.Verify(context.Background(), root, m, declared)
	require.Error(t, err)

	var structErr *StructuralMismatchError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, []string{"b.txt"}, structErr.Diff.Added)
	assert.Empty(t, structErr.Diff.Removed)
	assert.Equal(t, KindStructuralMismatch, outcome.Kind)
	assert.Zero(t, outcome.Files, "nothing may be hashed")
}

func TestVerifyRemovedFromDeclaration(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	engine := New()

	m, err := engine.Generate(context.Background(), root)
	require.NoError(t, err)

	writeFile(t, root, "MANIFEST.in", "include a.txt\nrecursive-include roles *.yml\n")

	_, err = engine.VerifyRoot(context.Background(), root, m)
	var structErr *StructuralMismatchError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, []string{"b.txt"}, structErr.Diff.Removed)
	assert.Empty(t, structErr.Diff.Added)
	assert.ErrorIs(t, err, ErrStructuralMismatch)
}

func TestVerifyDeletedFileIsReadError(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	engine := New()

	m, err := engine.Generate(context.Background(), root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))

	_, err = engine.VerifyRoot(context.Background(), root, m)
	var readErr *FileReadError
	require.True(t, errors.As(err, &readErr), "got %v", err)
	assert.Equal(t, "b.txt", readErr.Path)
}

func TestVerifyChecksumMismatch(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	m, err := New().Generate(context.Background(), root)
	require.NoError(t, err)

	writeFile(t, root, "a.txt", "alphA\n")
	writeFile(t, root, "roles/web/tasks/main.yml", "- name: changed\n")

	t.Run("fail fast", func(t *testing.T) {
		outcome, err := New(WithWorkers(3)).VerifyRoot(context.Background(), root, m)
		require.Error(t, err)

		var mismatch *ChecksumMismatchError
		require.True(t, errors.As(err, &mismatch))
		require.Len(t, mismatch.Mismatches, 1)
		assert.Equal(t, "a.txt", mismatch.Mismatches[0].Path)
		assert.Equal(t, m.Records[0].Digest, mismatch.Mismatches[0].Expected)
		assert.NotEqual(t, mismatch.Mismatches[0].Expected, mismatch.Mismatches[0].Actual)
		assert.Equal(t, KindChecksumMismatch, outcome.Kind)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("collect all", func(t *testing.T) {
		_, err := New(WithCollectAll(true)).VerifyRoot(context.Background(), root, m)

		var mismatch *ChecksumMismatchError
		require.True(t, errors.As(err, &mismatch))
		require.Len(t, mismatch.Mismatches, 2)
		assert.Equal(t, "a.txt", mismatch.Mismatches[0].Path)
		assert.Equal(t, "roles/web/tasks/main.yml", mismatch.Mismatches[1].Path)
	})
}

func TestVerifyCaseInsensitiveDigest(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	engine := New()
	m, err := engine.Generate(context.Background(), root)
	require.NoError(t, err)

	for i := range m.Records {
		m.Records[i].Digest = strings.ToUpper(m.Records[i].Digest)
	}

	outcome, err := engine.VerifyRoot(context.Background(), root, m)
	require.NoError(t, err)
	assert.True(t, outcome.Success())
}

func TestVerifyUsesManifestAlgorithm(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	blake3, err := digest.Lookup("blake3")
	require.NoError(t, err)

	m, err := New(WithAlgorithm(blake3)).Generate(context.Background(), root)
	require.NoError(t, err)

	// A default (sha256) engine still verifies a blake3 manifest correctly.
	outcome, err := New().VerifyRoot(context.Background(), root, m)
	require.NoError(t, err)
	assert.True(t, outcome.Success())
}

func TestGenerateCancelled(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Generate(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkDifferEngine(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, root, ".ansible-sign/sha256sum.txt", "stale\n")

	engine := New(WithDiffer(&WalkDiffer{Exclude: []string{"*.tmp"}}))
	m, err := engine.Generate(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"MANIFEST.in",
		"a.txt",
		"b.txt",
		"roles/db/tasks/main.yml",
		"roles/web/tasks/main.yml",
	}, m.Paths())

	writeFile(t, root, "new.yml", "x")
	_, err = engine.VerifyRoot(context.Background(), root, m)
	var structErr *StructuralMismatchError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, []string{"new.yml"}, structErr.Diff.Added)
}
