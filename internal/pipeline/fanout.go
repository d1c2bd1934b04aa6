package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// fanOut runs fn over inputs with bounded concurrency. Results come back in
// input order regardless of completion order; per-item errors are collected
// rather than aborting the batch. A cancelled context marks the remaining
// items as errored without starting them.
func fanOut[T, R any](ctx context.Context, concurrency int, inputs []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, []error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]R, len(inputs))
	errs := make([]error, len(inputs))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, item := range inputs {
		select {
		case <-ctx.Done():
			errs[i] = fmt.Errorf("item %d: %w", i, ctx.Err())
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = fn(ctx, i, item)
		}(i, item)
	}
	wg.Wait()
	return results, errs
}
