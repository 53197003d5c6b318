// Package checksum builds and checks checksum manifests: one digest per
// project file, serialized in the GNU coreutils "<digest>  <path>" format so
// the manifest can be signed as a single detached blob.
package checksum

import (
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/digest"
)

// Record is one manifest line.
type Record struct {
	// Digest is the hex digest of the file's bytes.
	Digest string `json:"digest" yaml:"digest"`

	// Path is relative to the project root, with forward slashes.
	Path string `json:"path" yaml:"path"`
}

// Manifest is an ordered list of records. Record order is the declared file
// order, which keeps repeated generation byte-identical.
type Manifest struct {
	Algorithm digest.Algorithm
	Records   []Record
}

// Paths returns the record paths in manifest order.
func (m *Manifest) Paths() []string {
	paths := make([]string, len(m.Records))
	for i, r := range m.Records {
		paths[i] = r.Path
	}
	return paths
}

// Len returns the number of records.
func (m *Manifest) Len() int {
	return len(m.Records)
}

// DiffResult is the structural difference between the declared file list and
// a manifest. Both slices are sorted.
type DiffResult struct {
	// Added paths are declared but missing from the manifest.
	Added []string `json:"added,omitempty" yaml:"added,omitempty"`

	// Removed paths are in the manifest but no longer declared.
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// IsEmpty reports whether the two sides agree.
func (d DiffResult) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Mismatch is a file whose current digest differs from the recorded one.
type Mismatch struct {
	Path     string `json:"path" yaml:"path"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
}

// Kind classifies a verification outcome.
type Kind string

// Verification outcomes.
const (
	KindSuccess            Kind = "success"
	KindStructuralMismatch Kind = "structural_mismatch"
	KindChecksumMismatch   Kind = "checksum_mismatch"
)

// Outcome summarizes a verification run. On failure, Verify returns both the
// outcome and a typed error carrying the same detail.
type Outcome struct {
	Kind       Kind       `json:"kind" yaml:"kind"`
	Diff       DiffResult `json:"diff" yaml:"diff"`
	Mismatches []Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`

	// Files is the number of files hashed.
	Files int `json:"files" yaml:"files"`

	// Bytes is the total size of the files hashed.
	Bytes int64 `json:"bytes" yaml:"bytes"`
}

// Success reports whether verification passed.
func (o *Outcome) Success() bool {
	return o != nil && o.Kind == KindSuccess
}
