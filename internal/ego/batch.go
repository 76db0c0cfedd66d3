package ego

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// BatchResult is one entry's outcome from EnhanceBatch: either a Result or an
// error (the context's error if the batch deadline expired before its turn
// ran); both are nil for an entry with no embedding.
type BatchResult struct {
	EntryID string
	Result  *Result
	Err     error
}

// EnhanceBatch runs EnhanceEntry for every id with bounded concurrency,
// honoring ctx's deadline. If ctx expires before every id has been
// processed, EnhanceBatch returns the results gathered so far alongside
// cancelled=true rather than blocking until all ids complete, per the
// spec's deadline-token cancellation policy for batch ego-graph work.
func (e *Enhancer) EnhanceBatch(ctx context.Context, ids []string, maxConcurrent int) (results []BatchResult, cancelled bool) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	out := make([]BatchResult, len(ids))
	g, gctx := errgroup.WithContext(context.Background())

	for i, id := range ids {
		i, id := i, id
		if ctx.Err() != nil {
			out[i] = BatchResult{EntryID: id, Err: ctx.Err()}
			cancelled = true
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				out[i] = BatchResult{EntryID: id, Err: err}
				return nil
			}
			defer sem.Release(1)

			select {
			case <-ctx.Done():
				out[i] = BatchResult{EntryID: id, Err: ctx.Err()}
				return nil
			default:
			}

			result, err := e.EnhanceEntry(ctx, id)
			out[i] = BatchResult{EntryID: id, Result: result, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	if ctx.Err() != nil {
		cancelled = true
	}
	return out, cancelled
}
