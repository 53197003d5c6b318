package project

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/history"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/signing"
)

// Recorder journals finished runs. *history.Journal satisfies it.
type Recorder interface {
	Record(e history.Entry) (*history.Entry, error)
}

// Coordinator sequences manifest generation, signing and verification.
type Coordinator struct {
	Engine   *checksum.Engine
	Signer   signing.Signer
	Verifier signing.Verifier

	// Journal is optional.
	Journal Recorder

	Logger *logging.Logger
}

// SignOptions are passed through to the signer.
type SignOptions struct {
	Fingerprint string
	Passphrase  string
	Home        string
}

// VerifyOptions are passed through to the verifier.
type VerifyOptions struct {
	Keyring string
	Home    string
}

// SignReport describes a signing run.
type SignReport struct {
	Layout   Layout
	Manifest *checksum.Manifest

	// Result is nil when the backend could not run.
	Result  *signing.Result
	Elapsed time.Duration
}

// VerifyReport describes a verification run.
type VerifyReport struct {
	Layout    Layout
	Signature *signing.Result

	// Outcome is nil when verification stopped before checksums were checked.
	Outcome *checksum.Outcome
	Elapsed time.Duration
}

func (c *Coordinator) logger() *logging.Logger {
	if c.Logger == nil {
		return logging.Discard()
	}
	return c.Logger
}

func (c *Coordinator) engine() *checksum.Engine {
	if c.Engine == nil {
		c.Engine = checksum.New()
	}
	return c.Engine
}

// Generate builds the manifest for root and writes it to the project layout.
func (c *Coordinator) Generate(ctx context.Context, root string) (Layout, *checksum.Manifest, error) {
	engine := c.engine()
	layout := NewLayout(root, engine.Algorithm)

	m, err := engine.Generate(ctx, root)
	if err != nil {
		return layout, nil, err
	}
	if err := WriteManifest(layout, m); err != nil {
		return layout, nil, err
	}
	c.logger().Info("wrote checksum manifest", "path", layout.ManifestPath(), "files", m.Len())
	return layout, m, nil
}

// Export generates the manifest for root and writes it to dest, or to w when
// dest is Stdout. An empty dest means the project layout. It returns where the
// manifest went.
func (c *Coordinator) Export(ctx context.Context, root string, w io.Writer, dest string) (string, *checksum.Manifest, error) {
	engine := c.engine()
	layout := NewLayout(root, engine.Algorithm)
	if dest == "" {
		dest = layout.ManifestPath()
	}

	m, err := engine.Generate(ctx, root)
	if err == nil {
		err = WriteManifestTo(w, dest, m)
	}

	var outcome *checksum.Outcome
	if m != nil {
		outcome = &checksum.Outcome{Kind: checksum.KindSuccess, Files: m.Len()}
	}
	c.record(history.OpGenerate, root, layout, outcome, err)
	if err != nil {
		return dest, nil, err
	}
	c.logger().Info("exported checksum manifest", "dest", dest, "files", m.Len())
	return dest, m, nil
}

// Sign generates and writes the manifest, then asks the signer for a
// detached signature next to it. A signer that runs but fails yields a
// *SignatureError wrapping ErrSigningFailed, with the report still returned.
func (c *Coordinator) Sign(ctx context.Context, root string, opts SignOptions) (*SignReport, error) {
	start := time.Now()

	layout, m, err := c.Generate(ctx, root)
	report := &SignReport{Layout: layout, Manifest: m}
	if err != nil {
		c.record(history.OpSign, root, layout, nil, err)
		return report, err
	}

	if c.Signer == nil {
		return report, &SignatureError{Op: "sign", Err: signing.ErrUnavailable}
	}

	res, err := c.Signer.Sign(ctx, signing.SignRequest{
		ManifestPath:  layout.ManifestPath(),
		SignaturePath: layout.SignaturePath(),
		Fingerprint:   opts.Fingerprint,
		Passphrase:    opts.Passphrase,
		Home:          opts.Home,
	})
	report.Result = res
	report.Elapsed = time.Since(start)

	switch {
	case err != nil:
		err = &SignatureError{Op: "sign", Err: err}
	case !res.Success:
		err = &SignatureError{Op: "sign", Result: res}
	}
	if res != nil {
		c.logger().Debug("signer details", "summary", res.Summary, "extra", res.ExtraInformation)
	}

	c.record(history.OpSign, root, layout, &checksum.Outcome{Kind: checksum.KindSuccess, Files: m.Len()}, err)
	return report, err
}

// Verify checks that the signature artifacts exist, verifies the detached
// signature, and only then validates the checksums. Signature failures wrap
// ErrSignatureInvalid and never reach checksum validation.
func (c *Coordinator) Verify(ctx context.Context, root string, opts VerifyOptions) (*VerifyReport, error) {
	start := time.Now()

	layout, manifestErr := Discover(root, c.engine().Algorithm)
	report := &VerifyReport{Layout: layout}
	if err := c.precheck(layout, manifestErr, opts); err != nil {
		c.record(history.OpVerify, root, layout, nil, err)
		return report, err
	}

	if c.Verifier == nil {
		return report, &SignatureError{Op: "verify", Err: signing.ErrUnavailable}
	}

	res, err := c.Verifier.Verify(ctx, signing.VerifyRequest{
		ManifestPath:  layout.ManifestPath(),
		SignaturePath: layout.SignaturePath(),
		Keyring:       opts.Keyring,
		Home:          opts.Home,
	})
	report.Signature = res
	switch {
	case err != nil:
		err = &SignatureError{Op: "verify", Err: err}
	case !res.Success:
		err = &SignatureError{Op: "verify", Result: res}
	}
	if res != nil {
		c.logger().Debug("verifier details", "summary", res.Summary, "extra", res.ExtraInformation)
	}
	if err != nil {
		report.Elapsed = time.Since(start)
		c.record(history.OpVerify, root, layout, nil, err)
		return report, err
	}

	outcome, err := c.validate(ctx, layout)
	report.Outcome = outcome
	report.Elapsed = time.Since(start)
	c.record(history.OpVerify, root, layout, outcome, err)
	return report, err
}

// precheck mirrors the artifact checks made before running the verifier.
func (c *Coordinator) precheck(layout Layout, manifestErr error, opts VerifyOptions) error {
	if !exists(layout.SignaturePath()) {
		return &MissingArtifactError{What: "Signature file", Path: layout.SignaturePath()}
	}
	if manifestErr != nil {
		return manifestErr
	}
	if opts.Keyring != "" && !exists(opts.Keyring) {
		return &MissingArtifactError{What: "Specified keyring file", Detail: "not found", Path: opts.Keyring}
	}
	if opts.Home != "" {
		info, err := os.Stat(opts.Home)
		if err != nil || !info.IsDir() {
			return &MissingArtifactError{What: "Specified GnuPG home", Detail: "is not a directory", Path: opts.Home}
		}
	}
	return nil
}

// ValidateChecksums reads the project's manifest and verifies it against the
// files the engine's differ declares. The outcome is non-nil whenever the
// manifest was parsed.
func (c *Coordinator) ValidateChecksums(ctx context.Context, root string) (*checksum.Outcome, error) {
	layout, err := Discover(root, c.engine().Algorithm)
	if err != nil {
		c.record(history.OpChecksum, root, layout, nil, err)
		return nil, err
	}
	outcome, err := c.validate(ctx, layout)
	c.record(history.OpChecksum, root, layout, outcome, err)
	return outcome, err
}

func (c *Coordinator) validate(ctx context.Context, layout Layout) (*checksum.Outcome, error) {
	m, err := ReadManifest(layout)
	if err != nil {
		return nil, err
	}
	return c.engine().VerifyRoot(ctx, layout.Root, m)
}

func (c *Coordinator) record(op history.Operation, root string, layout Layout, outcome *checksum.Outcome, runErr error) {
	if c.Journal == nil {
		return
	}

	e := history.Entry{
		Operation: op,
		Root:      root,
		Algorithm: layout.algorithm().Name(),
		Outcome:   outcomeName(outcome, runErr),
	}
	if outcome != nil {
		e.Files = outcome.Files
		e.Bytes = outcome.Bytes
	}
	if runErr != nil {
		e.Detail = runErr.Error()
	}

	if _, err := c.Journal.Record(e); err != nil {
		c.logger().Warn("failed to record history", "op", op, "error", err)
	}
}

func outcomeName(outcome *checksum.Outcome, err error) string {
	var sigErr *SignatureError
	switch {
	case err == nil:
		return string(checksum.KindSuccess)
	case outcome != nil && outcome.Kind != checksum.KindSuccess:
		return string(outcome.Kind)
	case errors.As(err, &sigErr) && sigErr.Op == "sign":
		return "signing_failed"
	case errors.As(err, &sigErr):
		return "signature_invalid"
	case errors.Is(err, ErrMissingArtifact):
		return "missing_artifact"
	default:
		return "error"
	}
}
