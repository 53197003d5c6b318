// Package filelist reads a project's MANIFEST.in and resolves it to the
// ordered list of files that belong to the project.
//
// The directive grammar is the one used by Python packaging:
//
//	include pat1 pat2 ...            files at the root matching any pattern
//	exclude pat1 pat2 ...
//	recursive-include dir pat ...    files anywhere under dir
//	recursive-exclude dir pat ...
//	global-include pat ...           files anywhere in the tree
//	global-exclude pat ...
//	graft dir                        every file under dir
//	prune dir
//
// Directives apply in order to an initially empty selection.
package filelist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/scanner"
)

// FileName is the declaration file looked up at the project root.
const FileName = "MANIFEST.in"

// MetadataDir holds the checksum manifest and signature. It is never part of
// the file list regardless of what MANIFEST.in says.
const MetadataDir = ".ansible-sign"

// ErrNotFound is returned when the project root has no MANIFEST.in.
var ErrNotFound = errors.New("MANIFEST.in not found")

// Reader resolves MANIFEST.in files against a project tree.
type Reader struct {
	// Workers bounds the parallel directory walk. Zero means one per CPU.
	Workers int
}

// Read resolves root/MANIFEST.in with default settings.
func Read(ctx context.Context, root string) ([]string, error) {
	return (&Reader{}).Read(ctx, root)
}

// Read returns the declared relative paths in declared order.
func (r *Reader) Read(ctx context.Context, root string) ([]string, error) {
	directives, err := r.load(root)
	if err != nil {
		return nil, err
	}

	opts := scanner.DefaultOptions(root)
	opts.Exclude = []string{MetadataDir}
	if r.Workers > 0 {
		opts.Workers = r.Workers
	}

	res, err := scanner.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	scanned := res.Paths()
	files := Resolve(directives, scanned)
	return slices.DeleteFunc(files, func(rel string) bool {
		if rel == MetadataDir || strings.HasPrefix(rel, MetadataDir+"/") {
			return true
		}
		if _, found := slices.BinarySearch(scanned, rel); found {
			return false
		}
		return isDir(filepath.Join(root, filepath.FromSlash(rel)))
	}), nil
}

// isDir reports whether path exists and is a directory. A literal include
// naming a directory selects nothing, like a glob matching no files.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (r *Reader) load(root string) ([]*Directive, error) {
	path := filepath.Join(root, FileName)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Resolve applies directives to allFiles, which must be sorted relative
// slash-separated paths. A file keeps the position at which it was first
// selected; excluding and re-including it moves it to the end.
//
// An include pattern without glob metacharacters names a file explicitly.
// It is declared even when absent from allFiles, so that a deleted file
// surfaces as unreadable rather than silently dropping out of the list.
// Reader.Read later drops such entries when they name a directory.
func Resolve(directives []*Directive, allFiles []string) []string {
	type entry struct {
		path string
		live bool
	}

	var (
		order    []entry
		position = make(map[string]int)
		present  = make(map[string]struct{}, len(allFiles))
	)
	for _, rel := range allFiles {
		present[rel] = struct{}{}
	}

	for _, d := range directives {
		for _, rel := range d.selectFrom(allFiles, present) {
			idx, selected := position[rel]

			switch {
			case d.Action.Adds() && !selected:
				position[rel] = len(order)
				order = append(order, entry{path: rel, live: true})
			case !d.Action.Adds() && selected:
				order[idx].live = false
				delete(position, rel)
			}
		}
	}

	files := make([]string, 0, len(position))
	for _, e := range order {
		if e.live {
			files = append(files, e.path)
		}
	}
	return files
}

// selectFrom returns the sorted paths this directive applies to.
func (d *Directive) selectFrom(allFiles []string, present map[string]struct{}) []string {
	var matched []string
	for _, rel := range allFiles {
		if d.Matches(rel) {
			matched = append(matched, rel)
		}
	}

	if d.Action != ActionInclude {
		return matched
	}

	var declared []string
	for _, p := range d.Patterns {
		if !isLiteral(p) {
			continue
		}
		if _, ok := present[p]; !ok {
			declared = append(declared, p)
		}
	}
	if len(declared) == 0 {
		return matched
	}

	matched = append(matched, declared...)
	sort.Strings(matched)
	return slices.Compact(matched)
}

func isLiteral(pattern string) bool {
	return !strings.ContainsAny(pattern, `*?[]{}\`)
}
