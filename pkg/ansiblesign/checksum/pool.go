package checksum

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/digest"
)

// hashResult is the digest of one file, or the error reading it.
type hashResult struct {
	digest string
	size   int64
	err    error
}

// hashAll hashes root/rel for every rel with at most workers goroutines.
// results[i] always belongs to paths[i], whatever order the workers finish in.
// Read errors are recorded per file; only cancellation aborts the batch.
func hashAll(ctx context.Context, alg digest.Algorithm, root string, paths []string, workers int) ([]hashResult, error) {
	results := make([]hashResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, rel := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, size, err := digest.HashFile(alg, filepath.Join(root, filepath.FromSlash(rel)))
			results[i] = hashResult{digest: sum, size: size, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
