// Package worker provides a generic concurrent worker pool for fan-out/fan-in
// processing. Used to materialize multiple catalog sources (git clones, HTTP
// downloads) concurrently instead of one at a time.
package worker

import (
	"runtime"
	"sync"
)

// Result pairs a processed value with its original index to preserve ordering.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Process runs fn over items using up to concurrency goroutines, returning
// results in input order so callers can fan out over any input type
// (FetchUnits, worktree specs, and so on). Errors from individual items are
// captured per-result rather than aborting the whole batch.
// If concurrency <= 0, defaults to runtime.NumCPU().
func Process[I, T any](concurrency int, items []I, fn func(I) (T, error)) []Result[T] {
	if len(items) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	// Cap concurrency to number of items
	workers := concurrency
	if workers > len(items) {
		workers = len(items)
	}

	type job struct {
		index int
		item  I
	}

	jobs := make(chan job, len(items))
	results := make([]Result[T], len(items))
	var wg sync.WaitGroup

	// Start workers
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				val, err := fn(j.item)
				results[j.index] = Result[T]{
					Index: j.index,
					Value: val,
					Err:   err,
				}
			}
		}()
	}

	// Send jobs
	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	// Wait for all workers to finish
	wg.Wait()

	return results
}
