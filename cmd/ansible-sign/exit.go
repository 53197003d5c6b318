package main

import (
	"errors"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/project"
)

// Process exit codes.
const (
	ExitSuccess          = 0 // Signed, verified or validated
	ExitFailure          = 1 // Structural mismatch, missing file, invalid manifest line, usage
	ExitChecksumMismatch = 2 // A file's digest differs from the manifest
	ExitSignatureInvalid = 3 // The detached signature did not verify
	ExitSigningFailed    = 4 // The signer produced no signature
)

// ExitCodeForError returns the exit code for an error returned by a command.
// Signature errors take precedence over checksum errors; anything
// unclassified is ExitFailure.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, project.ErrSigningFailed):
		return ExitSigningFailed
	case errors.Is(err, project.ErrSignatureInvalid):
		return ExitSignatureInvalid
	case errors.Is(err, checksum.ErrChecksumMismatch):
		return ExitChecksumMismatch
	}
	return ExitFailure
}

// reportedError marks an error whose message the command already printed.
// main exits with its code without printing it again.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func isReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
