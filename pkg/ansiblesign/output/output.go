// Package output renders verification results for people and for scripts.
//
// Status lines ("[OK   ] ...", "[ERROR] ...", "[NOTE ] ...") go through a
// Reporter whose color switch is passed in explicitly. Full verification
// reports are rendered by formatters looked up in a registry:
//
//	formatter, err := output.Get("json")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/signing"
)

// Report kinds beyond the checksum outcome kinds.
const (
	KindSignatureInvalid = "signature_invalid"
	KindSigningFailed    = "signing_failed"
	KindError            = "error"
)

// Report is the data every formatter renders.
type Report struct {
	// Root is the project directory.
	Root string `json:"root" yaml:"root"`

	// Algorithm is the digest algorithm of the manifest.
	Algorithm string `json:"algorithm" yaml:"algorithm"`

	// Kind is "success", a checksum outcome kind, or one of the Kind constants.
	Kind string `json:"kind" yaml:"kind"`

	Files    int           `json:"files" yaml:"files"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	Added      []string            `json:"added,omitempty" yaml:"added,omitempty"`
	Removed    []string            `json:"removed,omitempty" yaml:"removed,omitempty"`
	Mismatches []checksum.Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`

	// Signature is set when a signature was checked.
	Signature *signing.Result `json:"signature,omitempty" yaml:"signature,omitempty"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Success reports whether the run passed.
func (r *Report) Success() bool {
	return r.Kind == string(checksum.KindSuccess)
}

// NewReport builds a report from a checksum outcome and the error that
// accompanied it. Either may be nil.
func NewReport(root, algorithm string, outcome *checksum.Outcome, err error) *Report {
	r := &Report{Root: root, Algorithm: algorithm, Kind: string(checksum.KindSuccess)}
	if outcome != nil {
		r.Kind = string(outcome.Kind)
		r.Files = outcome.Files
		r.Bytes = outcome.Bytes
		r.Added = outcome.Diff.Added
		r.Removed = outcome.Diff.Removed
		r.Mismatches = outcome.Mismatches
	}
	if err != nil {
		r.Error = err.Error()
		if r.Success() {
			r.Kind = KindError
		}
	}
	return r
}

// WithSignature attaches a signature result. A failed result marks the
// report as an invalid signature.
func (r *Report) WithSignature(res *signing.Result) *Report {
	r.Signature = res
	if res != nil && !res.Success {
		r.Kind = KindSignatureInvalid
	}
	return r
}

// Formatter renders a Report.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// ErrUnknownFormatter is returned by Get for an unregistered name.
var ErrUnknownFormatter = errors.New("unknown formatter")

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormatter, name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
