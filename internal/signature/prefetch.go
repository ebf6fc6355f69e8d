package signature

import (
	"context"
	"fmt"

	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one prefetched request.
type Result struct {
	Request   Request
	Signature *Signature
	Err       error
}

// Prefetch resolves every request concurrently with at most workers lookups
// in flight and returns the results in request order. It returns only after
// every lookup has finished. Resolution failures are reported per result;
// the returned error is non-nil only when ctx is cancelled.
func Prefetch(ctx context.Context, r Resolver, reqs []Request, workers int) ([]Result, error) {
	logger := ctxlog.FromContext(ctx)
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sig, err := r.Resolve(gctx, req)
			results[i] = Result{Request: req, Signature: sig, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("signature prefetch interrupted: %w", err)
	}
	logger.Debug("Prefetched signatures.", "count", len(reqs), "workers", workers)
	return results, nil
}
