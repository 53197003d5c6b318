package checksum

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/digest"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
)

// Engine generates and verifies checksum manifests.
type Engine struct {
	// Algorithm hashes file content. Nil means sha256.
	Algorithm digest.Algorithm

	// Differ decides which files belong to the project. Nil means MANIFEST.in.
	Differ Differ

	// Workers bounds concurrent hashing. Values below 1 mean one.
	Workers int

	// CollectAll keeps hashing after the first mismatch and reports every
	// changed file. The default stops at the first one.
	CollectAll bool

	Logger *logging.Logger
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithAlgorithm sets the digest algorithm.
func WithAlgorithm(alg digest.Algorithm) Option {
	return func(e *Engine) { e.Algorithm = alg }
}

// WithDiffer sets the ground-truth strategy.
func WithDiffer(d Differ) Option {
	return func(e *Engine) { e.Differ = d }
}

// WithWorkers sets the hashing concurrency.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.Workers = n }
}

// WithCollectAll reports every mismatch instead of the first.
func WithCollectAll(all bool) Option {
	return func(e *Engine) { e.CollectAll = all }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.Logger = l }
}

// New creates an Engine. Defaults: sha256, MANIFEST.in differ, one worker.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.Algorithm == nil {
		e.Algorithm = digest.Default()
	}
	if e.Differ == nil {
		e.Differ = &ManifestInDiffer{}
	}
	if e.Workers < 1 {
		e.Workers = 1
	}
	if e.Logger == nil {
		e.Logger = logging.Get("checksum")
	}
	return e
}

// Generate hashes every declared file under root, in declared order.
// It fails with filelist.ErrNotFound (via the differ) when the project has no
// file list, and with *FileReadError when a declared file cannot be read.
func (e *Engine) Generate(ctx context.Context, root string) (*Manifest, error) {
	start := time.Now()

	files, err := e.Differ.GatherFiles(ctx, root)
	if err != nil {
		return nil, err
	}
	e.Logger.Debug("gathered files", "root", root, "differ", e.Differ.Name(), "files", len(files))

	results, err := hashAll(ctx, e.Algorithm, root, files, e.Workers)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Algorithm: e.Algorithm, Records: make([]Record, len(files))}
	var total int64
	for i, res := range results {
		if res.err != nil {
			return nil, &FileReadError{Path: files[i], Err: res.err}
		}
		m.Records[i] = Record{Digest: res.digest, Path: files[i]}
		total += res.size
	}

	e.Logger.Info("manifest generated",
		"root", root,
		"algorithm", e.Algorithm.Name(),
		"files", len(files),
		"bytes", total,
		"elapsed", time.Since(start),
	)
	return m, nil
}

// Verify checks manifest against the declared files under root.
//
// A structural difference is reported as *StructuralMismatchError before any
// file is hashed. Otherwise records are checked in manifest order and the
// first changed file yields *ChecksumMismatchError (every changed file when
// CollectAll is set). An unreadable file yields *FileReadError.
//
// The returned Outcome is non-nil for both success and mismatch.
func (e *Engine) Verify(ctx context.Context, root string, manifest *Manifest, declared []string) (*Outcome, error) {
	if manifest == nil {
		return nil, fmt.Errorf("verify %s: nil manifest", root)
	}

	alg := manifest.Algorithm
	if alg == nil {
		alg = e.Algorithm
	}

	diff := e.Differ.Diff(declared, manifest.Paths())
	if !diff.IsEmpty() {
		e.Logger.Debug("structural mismatch", "root", root, "added", len(diff.Added), "removed", len(diff.Removed))
		return &Outcome{Kind: KindStructuralMismatch, Diff: diff}, &StructuralMismatchError{Diff: diff}
	}

	paths := manifest.Paths()
	results, err := hashAll(ctx, alg, root, paths, e.Workers)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Kind: KindSuccess}
	for i, res := range results {
		rec := manifest.Records[i]
		if res.err != nil {
			return nil, &FileReadError{Path: rec.Path, Err: res.err}
		}
		outcome.Files++
		outcome.Bytes += res.size

		if digest.Equal(rec.Digest, res.digest) {
			continue
		}

		e.Logger.Debug("checksum mismatch", "path", rec.Path, "expected", rec.Digest, "actual", res.digest)
		outcome.Kind = KindChecksumMismatch
		outcome.Mismatches = append(outcome.Mismatches, Mismatch{
			Path:     rec.Path,
			Expected: rec.Digest,
			Actual:   res.digest,
		})
		if !e.CollectAll {
			break
		}
	}

	if outcome.Kind == KindChecksumMismatch {
		return outcome, &ChecksumMismatchError{Mismatches: outcome.Mismatches}
	}

	e.Logger.Info("checksums verified", "root", root, "files", outcome.Files, "bytes", outcome.Bytes)
	return outcome, nil
}

// VerifyRoot gathers the declared files with the engine's differ and then
// runs Verify.
func (e *Engine) VerifyRoot(ctx context.Context, root string, manifest *Manifest) (*Outcome, error) {
	declared, err := e.Differ.GatherFiles(ctx, root)
	if err != nil {
		return nil, err
	}
	return e.Verify(ctx, root, manifest, declared)
}
