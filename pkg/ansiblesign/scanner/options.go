// Package scanner enumerates the files of a project tree in parallel.
// Paths are reported relative to the scan root with forward slashes, which is
// the form used by MANIFEST.in patterns and checksum manifests.
package scanner

import "runtime"

// DefaultExclusions are skipped unless the caller replaces them.
// Version control metadata never belongs in a project manifest.
var DefaultExclusions = []string{
	".git",
	".hg",
	".svn",
}

// Options configures the scanner behavior.
type Options struct {
	// Root is the directory to enumerate.
	Root string

	// Exclude contains patterns for paths to skip. A pattern matches a
	// relative path exactly, as a directory prefix, or as a glob against
	// either the base name or the full relative path.
	Exclude []string

	// Workers is the number of concurrent directory readers.
	Workers int

	// FollowFileLinks includes symlinks that resolve to regular files.
	// Symlinked directories are never descended into.
	FollowFileLinks bool
}

// DefaultOptions returns options for scanning root.
func DefaultOptions(root string) Options {
	return Options{
		Root:            root,
		Exclude:         DefaultExclusions,
		Workers:         runtime.NumCPU(),
		FollowFileLinks: true,
	}
}

// Validate applies defaults for unset values.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	return nil
}
