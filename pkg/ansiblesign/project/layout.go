// Package project coordinates signing and verification of a project tree:
// it generates the checksum manifest, writes it to the project's metadata
// directory, and sequences the signing backend with checksum validation.
package project

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/digest"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
)

// SignatureSuffix is appended to the manifest path to name the signature.
const SignatureSuffix = ".sig"

// Stdout is the output path that means "write to standard output".
const Stdout = "-"

// Layout locates the signing artifacts of a project.
type Layout struct {
	Root      string
	Algorithm digest.Algorithm
}

// NewLayout returns the layout for root using alg (sha256 when nil).
func NewLayout(root string, alg digest.Algorithm) Layout {
	if alg == nil {
		alg = digest.Default()
	}
	return Layout{Root: root, Algorithm: alg}
}

// Dir is <root>/.ansible-sign.
func (l Layout) Dir() string {
	return filepath.Join(l.Root, filelist.MetadataDir)
}

// ManifestPath is <root>/.ansible-sign/<algorithm>sum.txt.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.Dir(), digest.ManifestName(l.algorithm()))
}

// SignaturePath is the manifest path plus ".sig".
func (l Layout) SignaturePath() string {
	return l.ManifestPath() + SignatureSuffix
}

func (l Layout) algorithm() digest.Algorithm {
	if l.Algorithm == nil {
		return digest.Default()
	}
	return l.Algorithm
}

// Discover finds the manifest already present under root. The preferred
// algorithm is tried first, then every other registered one. When none
// exists the preferred layout is returned with a *MissingArtifactError.
func Discover(root string, preferred digest.Algorithm) (Layout, error) {
	want := NewLayout(root, preferred)
	if exists(want.ManifestPath()) {
		return want, nil
	}
	for _, name := range digest.Names() {
		alg, err := digest.Lookup(name)
		if err != nil || alg.Name() == want.Algorithm.Name() {
			continue
		}
		l := NewLayout(root, alg)
		if exists(l.ManifestPath()) {
			return l, nil
		}
	}
	return want, &MissingArtifactError{What: "Checksum manifest file", Path: want.ManifestPath()}
}

// ReadManifest reads and strictly parses the layout's manifest.
func ReadManifest(l Layout) (*checksum.Manifest, error) {
	data, err := os.ReadFile(l.ManifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingArtifactError{What: "Checksum manifest file", Path: l.ManifestPath()}
	}
	if err != nil {
		return nil, fmt.Errorf("reading checksum manifest: %w", err)
	}
	return checksum.Parse(l.algorithm(), data)
}

// WriteManifest writes m to the layout's manifest path. The full content is
// written to a temporary file in the same directory and renamed into place,
// so readers never observe a partial manifest.
func WriteManifest(l Layout, m *checksum.Manifest) error {
	return writeAtomic(l.ManifestPath(), m.Serialize())
}

// WriteManifestTo writes m to dest, or to w when dest is Stdout.
func WriteManifestTo(w io.Writer, dest string, m *checksum.Manifest) error {
	if dest == Stdout {
		_, err := w.Write(m.Serialize())
		return err
	}
	return writeAtomic(dest, m.Serialize())
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
