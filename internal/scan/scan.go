// Package scan drives paged traversals of the response store. It owns
// the loop mechanics every full-store pass shares: cursor advancement,
// optional pacing, running counts, early stop, and partial-failure
// reporting that lets a caller resume where a pass died.
package scan

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrStop signals that a visit function wants the traversal to end
// early. ForEachBatch swallows it and returns the totals accumulated so
// far with a nil error.
var ErrStop = errors.New("scan stopped")

// Totals reports what a traversal covered.
type Totals struct {
	Batches   int
	Processed int
	Matched   int
	Skipped   int
}

// Delta is one batch's contribution to the running totals.
type Delta struct {
	Matched int
	Skipped int
}

// PageFunc fetches the batch following cursor. An empty item slice ends
// the traversal; next is the cursor for the page after this one.
type PageFunc[T any] func(ctx context.Context, cursor string, limit int) (items []T, next string, err error)

// VisitFunc processes one batch and reports its contribution.
type VisitFunc[T any] func(ctx context.Context, items []T) (Delta, error)

// PartialError wraps a mid-traversal failure with everything needed to
// account for the work already done and resume after the last good page.
type PartialError struct {
	Totals Totals
	Cursor string
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("scan aborted after %d batches (%d items): %v", e.Totals.Batches, e.Totals.Processed, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Options tunes one traversal.
type Options struct {
	// PageSize bounds each fetch; values <= 0 fall back to 500.
	PageSize int
	// Limiter paces page fetches when set. Traversals against a live
	// store run behind reviewers, not in front of them.
	Limiter *rate.Limiter
}

// ForEachBatch pages through the store with page and hands every batch
// to visit. It stops on an empty page or an empty next cursor, on
// ErrStop from visit, or on the first failure, which it wraps in a
// PartialError carrying the totals and the resume cursor.
func ForEachBatch[T any](ctx context.Context, opts Options, page PageFunc[T], visit VisitFunc[T]) (Totals, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	var totals Totals
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return totals, &PartialError{Totals: totals, Cursor: cursor, Err: err}
		}
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return totals, &PartialError{Totals: totals, Cursor: cursor, Err: err}
			}
		}

		items, next, err := page(ctx, cursor, pageSize)
		if err != nil {
			return totals, &PartialError{Totals: totals, Cursor: cursor, Err: err}
		}
		if len(items) == 0 {
			return totals, nil
		}

		totals.Batches++
		totals.Processed += len(items)

		delta, err := visit(ctx, items)
		totals.Matched += delta.Matched
		totals.Skipped += delta.Skipped
		if err != nil {
			if errors.Is(err, ErrStop) {
				return totals, nil
			}
			return totals, &PartialError{Totals: totals, Cursor: cursor, Err: err}
		}

		if next == "" {
			return totals, nil
		}
		cursor = next
	}
}
