package project

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/signing"
)

var (
	// ErrMissingArtifact means a file or directory the operation needs does
	// not exist: the manifest, the signature, a keyring or a GnuPG home.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrSignatureInvalid means the detached signature did not verify.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrSigningFailed means the signing backend did not produce a signature.
	ErrSigningFailed = errors.New("signing failed")
)

// MissingArtifactError names the missing file.
type MissingArtifactError struct {
	// What is a human label, e.g. "Signature file".
	What string
	Path string

	// Detail replaces the default "does not exist" wording.
	Detail string
}

func (e *MissingArtifactError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = "does not exist"
	}
	return fmt.Sprintf("%s %s: %s", e.What, detail, e.Path)
}

func (e *MissingArtifactError) Unwrap() error { return ErrMissingArtifact }

// SignatureError carries the backend result of a failed sign or verify. It
// unwraps to ErrSigningFailed or ErrSignatureInvalid.
type SignatureError struct {
	// Op is "sign" or "verify".
	Op     string
	Result *signing.Result

	// Err is set when the backend could not run at all.
	Err error
}

func (e *SignatureError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
	case e.Result != nil:
		return fmt.Sprintf("%s: %s", e.sentinel(), e.Result.Summary)
	default:
		return e.sentinel().Error()
	}
}

func (e *SignatureError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.sentinel(), e.Err}
	}
	return []error{e.sentinel()}
}

func (e *SignatureError) sentinel() error {
	if e.Op == "sign" {
		return ErrSigningFailed
	}
	return ErrSignatureInvalid
}
