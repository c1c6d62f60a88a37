// Package fanout runs independent tasks concurrently and joins on all of them.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Join runs task once per item, all concurrently, and waits for every task
// to return. result[i] always belongs to items[i], whatever order the tasks
// finish in. Join never aborts early and has no error path: a task must turn
// its own failures into a valid result value.
func Join[T, R any](ctx context.Context, items []T, task func(ctx context.Context, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	// No WithContext: one task finishing must never cancel its siblings.
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			results[i] = task(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
