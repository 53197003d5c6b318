package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/output"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/project"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/signing"
)

const debugHint = "Re-run with the global --debug flag for more information."

// printChecksumResult prints the status lines for a checksum validation.
func printChecksumResult(rep *output.Reporter, err error) {
	var invalid *checksum.InvalidLineError
	switch {
	case err == nil:
		rep.OK("Checksum validation succeeded.")
	case errors.Is(err, filelist.ErrNotFound):
		rep.Error("Could not find a MANIFEST.in file in the specified project.")
		rep.Note("If you are attempting to verify a signed project, please ensure that the project directory includes this file after signing.")
		rep.Note("See the ansible-sign documentation for more information.")
	case errors.As(err, &invalid):
		rep.Error("Invalid line encountered in checksum manifest: %v", err)
	case errors.Is(err, checksum.ErrStructuralMismatch), errors.Is(err, checksum.ErrChecksumMismatch):
		rep.Error("Checksum validation failed.")
		rep.Error("%v", err)
	default:
		rep.Error("%v", err)
	}
}

// printSignatureFailure prints a failed verification. It reports false when
// err is not a signature error.
func printSignatureFailure(rep *output.Reporter, err error) bool {
	var sigErr *project.SignatureError
	if !errors.As(err, &sigErr) {
		return false
	}
	switch {
	case sigErr.Result != nil:
		rep.Error("%s", sigErr.Result.Summary)
	case errors.Is(sigErr.Err, signing.ErrUnavailable):
		rep.Error("%v", sigErr.Err)
	default:
		rep.Error("%v", err)
	}
	rep.Note(debugHint)
	return true
}

// printManifestInMissing prints the guidance for signing a project that has
// no MANIFEST.in.
func printManifestInMissing(w io.Writer) {
	fmt.Fprintln(w, "Could not find a MANIFEST.in file in the specified project.")
	fmt.Fprintln(w, "If you are attempting to sign a project, please create this file.")
	fmt.Fprintln(w, "See the ansible-sign documentation for more information.")
}

// renderReport writes r in the named format.
func renderReport(w io.Writer, format string, r *output.Report) error {
	f, err := output.Get(format)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, output.Available())
	}
	if cd, ok := f.(output.ColorDisabler); ok && cfg.NoColor {
		cd.DisableColor()
	}

	var buf bytes.Buffer
	if err := f.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// checksumReport builds the report for a validation that ran against layout.
func checksumReport(layout project.Layout, outcome *checksum.Outcome, err error, elapsed time.Duration) *output.Report {
	alg := ""
	if layout.Algorithm != nil {
		alg = layout.Algorithm.Name()
	}
	r := output.NewReport(layout.Root, alg, outcome, err)
	r.Duration = elapsed
	return r
}
