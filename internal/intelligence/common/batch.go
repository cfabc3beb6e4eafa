package common

import (
	"context"
	"sync"

	"github.com/clinsignal/clinsignal/pkg/errors"
)

// ---------------------------------------------------------------------------
// Generic types
// ---------------------------------------------------------------------------

// ProcessFunc is the signature for a function that processes a single item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// ItemResult holds the outcome of processing a single item within a batch.
type ItemResult[R any] struct {
	Index  int   `json:"index"`
	Result R     `json:"result"`
	Error  error `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Ordered bounded-concurrency execution
// ---------------------------------------------------------------------------

// RunOrdered processes every item with at most concurrency workers and
// returns one result per input, in input order. Individual item failures
// are recorded per slot rather than aborting the batch; a cancelled
// context stops scheduling and is reported on the remaining slots.
func RunOrdered[T, R any](ctx context.Context, items []T, concurrency int, fn ProcessFunc[T, R]) []*ItemResult[R] {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*ItemResult[R], len(items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				results[j] = &ItemResult[R]{Index: j, Error: errors.Wrap(err, errors.ErrCodeTimeout, "batch cancelled")}
			}
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()
			defer func() { <-sem }()

			out, err := fn(ctx, it)
			results[idx] = &ItemResult[R]{Index: idx, Result: out, Error: err}
		}(i, item)
	}

	wg.Wait()
	return results
}

// FirstError returns the error of the first failed slot, or nil when every
// item succeeded. Useful for callers that treat a batch as all-or-nothing.
func FirstError[R any](results []*ItemResult[R]) error {
	for _, r := range results {
		if r != nil && r.Error != nil {
			return r.Error
		}
	}
	return nil
}

// CollectResults unwraps the result values of an all-success batch. It
// returns the first failure untouched so callers keep the original code.
func CollectResults[R any](results []*ItemResult[R]) ([]R, error) {
	if err := FirstError(results); err != nil {
		return nil, err
	}
	out := make([]R, len(results))
	for i, r := range results {
		out[i] = r.Result
	}
	return out, nil
}
