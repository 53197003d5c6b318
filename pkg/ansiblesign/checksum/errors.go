package checksum

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. The typed errors below unwrap to these.
var (
	ErrInvalidLine        = errors.New("invalid checksum line")
	ErrFileRead           = errors.New("file read error")
	ErrStructuralMismatch = errors.New("checksum file does not match the declared file list")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
)

// InvalidLineError is returned by Parse for a malformed manifest line.
type InvalidLineError struct {
	// Line is 1-based.
	Line   int
	Raw    string
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid checksum line %d (%s): %q", e.Line, e.Reason, e.Raw)
}

func (e *InvalidLineError) Unwrap() error { return ErrInvalidLine }

// FileReadError is returned when a declared or recorded file cannot be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause, so
// errors.Is(err, fs.ErrNotExist) also works.
func (e *FileReadError) Unwrap() []error { return []error{ErrFileRead, e.Err} }

// StructuralMismatchError reports files added to or removed from the project
// since the manifest was generated.
type StructuralMismatchError struct {
	Diff DiffResult
}

func (e *StructuralMismatchError) Error() string {
	var b strings.Builder
	b.WriteString(ErrStructuralMismatch.Error())
	if len(e.Diff.Added) > 0 {
		fmt.Fprintf(&b, "; added: %s", strings.Join(e.Diff.Added, ", "))
	}
	if len(e.Diff.Removed) > 0 {
		fmt.Fprintf(&b, "; removed: %s", strings.Join(e.Diff.Removed, ", "))
	}
	return b.String()
}

func (e *StructuralMismatchError) Unwrap() error { return ErrStructuralMismatch }

// ChecksumMismatchError lists files whose content changed. In fail-fast mode
// it holds exactly one mismatch.
type ChecksumMismatchError struct {
	Mismatches []Mismatch
}

func (e *ChecksumMismatchError) Error() string {
	if len(e.Mismatches) == 1 {
		m := e.Mismatches[0]
		return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", m.Path, m.Expected, m.Actual)
	}
	paths := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		paths[i] = m.Path
	}
	return fmt.Sprintf("checksum mismatch for %d files: %s", len(e.Mismatches), strings.Join(paths, ", "))
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrChecksumMismatch }
