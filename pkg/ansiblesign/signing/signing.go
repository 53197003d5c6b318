// Package signing defines the collaborators that sign a checksum manifest
// and verify its detached signature, along with a GnuPG-backed
// implementation of both.
package signing

import (
	"context"
	"errors"
)

// ErrUnavailable means the signing backend could not be run at all, for
// example because its binary is not installed. It is distinct from a
// signature that was checked and found bad.
var ErrUnavailable = errors.New("signing backend unavailable")

// Result is what a backend reports after signing or verifying.
type Result struct {
	// Success is the only field the caller acts on.
	Success bool `json:"success" yaml:"success"`

	// Summary is a one-line human description, e.g. "signature valid".
	Summary string `json:"summary" yaml:"summary"`

	// ExtraInformation carries backend diagnostics for debug output.
	ExtraInformation string `json:"extra_information,omitempty" yaml:"extra_information,omitempty"`
}

// SignRequest describes a detached signing operation.
type SignRequest struct {
	// ManifestPath is the file to sign.
	ManifestPath string

	// SignaturePath is where the detached signature is written.
	SignaturePath string

	// Fingerprint selects the private key. Empty uses the backend default.
	Fingerprint string

	// Passphrase unlocks the private key. Empty lets the backend prompt or
	// use an agent.
	Passphrase string

	// Home is the backend's key store directory. Empty uses its default.
	Home string
}

// VerifyRequest describes a detached signature check.
type VerifyRequest struct {
	ManifestPath  string
	SignaturePath string

	// Keyring restricts verification to the keys in this file.
	Keyring string

	Home string
}

// Signer produces a detached signature over a manifest file.
type Signer interface {
	// Sign returns a non-nil error only when the backend could not run.
	// A failed signature is a Result with Success false.
	Sign(ctx context.Context, req SignRequest) (*Result, error)
}

// Verifier checks a detached signature.
type Verifier interface {
	// Verify returns a non-nil error only when the backend could not run.
	// A bad signature is a Result with Success false.
	Verify(ctx context.Context, req VerifyRequest) (*Result, error)
}
