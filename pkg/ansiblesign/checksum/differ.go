package checksum

import (
	"context"
	"fmt"
	"sort"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/scanner"
)

// Differ decides which files belong to a project and compares that set with
// the paths a manifest covers. Implementations differ only in what they treat
// as ground truth.
type Differ interface {
	// Name identifies the strategy in config and reports.
	Name() string

	// GatherFiles returns the project's files in declared order.
	GatherFiles(ctx context.Context, root string) ([]string, error)

	// Diff compares declared paths against manifest paths.
	Diff(declared, recorded []string) DiffResult
}

// Differ strategy names.
const (
	DifferManifestIn = "manifest-in"
	DifferWalk       = "walk"
)

// ComputeDiff returns added = declared - recorded and removed = recorded - declared,
// each sorted.
func ComputeDiff(declared, recorded []string) DiffResult {
	declaredSet := make(map[string]struct{}, len(declared))
	for _, p := range declared {
		declaredSet[p] = struct{}{}
	}
	recordedSet := make(map[string]struct{}, len(recorded))
	for _, p := range recorded {
		recordedSet[p] = struct{}{}
	}

	var diff DiffResult
	for p := range declaredSet {
		if _, ok := recordedSet[p]; !ok {
			diff.Added = append(diff.Added, p)
		}
	}
	for p := range recordedSet {
		if _, ok := declaredSet[p]; !ok {
			diff.Removed = append(diff.Removed, p)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	return diff
}

// ManifestInDiffer treats the project's MANIFEST.in as ground truth, so build
// artifacts and editor droppings never cause false mismatches.
type ManifestInDiffer struct {
	// Workers bounds the directory walk used to resolve patterns.
	Workers int
}

var _ Differ = (*ManifestInDiffer)(nil)

// Name implements Differ.
func (d *ManifestInDiffer) Name() string { return DifferManifestIn }

// GatherFiles implements Differ. It fails with filelist.ErrNotFound when the
// project has no MANIFEST.in.
func (d *ManifestInDiffer) GatherFiles(ctx context.Context, root string) ([]string, error) {
	r := &filelist.Reader{Workers: d.Workers}
	return r.Read(ctx, root)
}

// Diff implements Differ.
func (d *ManifestInDiffer) Diff(declared, recorded []string) DiffResult {
	return ComputeDiff(declared, recorded)
}

// WalkDiffer treats every file under the root as part of the project, minus
// the metadata directory and the exclusion patterns.
type WalkDiffer struct {
	// Exclude lists extra patterns to skip, matched like scanner exclusions.
	Exclude []string

	Workers int
}

var _ Differ = (*WalkDiffer)(nil)

// Name implements Differ.
func (d *WalkDiffer) Name() string { return DifferWalk }

// GatherFiles implements Differ. Files come back in sorted order.
func (d *WalkDiffer) GatherFiles(ctx context.Context, root string) ([]string, error) {
	opts := scanner.DefaultOptions(root)
	opts.Exclude = append(append([]string{filelist.MetadataDir}, scanner.DefaultExclusions...), d.Exclude...)
	if d.Workers > 0 {
		opts.Workers = d.Workers
	}

	res, err := scanner.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	return res.Paths(), nil
}

// Diff implements Differ.
func (d *WalkDiffer) Diff(declared, recorded []string) DiffResult {
	return ComputeDiff(declared, recorded)
}

// NewDiffer returns the strategy registered under name. An empty name selects
// the MANIFEST.in differ.
func NewDiffer(name string, workers int, exclude []string) (Differ, error) {
	switch name {
	case "", DifferManifestIn:
		return &ManifestInDiffer{Workers: workers}, nil
	case DifferWalk:
		return &WalkDiffer{Workers: workers, Exclude: exclude}, nil
	default:
		return nil, &UnknownDifferError{Name: name}
	}
}

// UnknownDifferError is returned by NewDiffer for an unregistered name.
type UnknownDifferError struct {
	Name string
}

func (e *UnknownDifferError) Error() string {
	return fmt.Sprintf("unknown differ %q (available: %s, %s)", e.Name, DifferManifestIn, DifferWalk)
}
