package services

import (
	"context"
	"fmt"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/logger"
)

// FetchFunc fetches one page for a cursor. An empty cursor starts the
// sequence.
type FetchFunc func(ctx context.Context, cursor string) (*driven.Page, error)

// CutoffFunc reports whether an item is at or before the delta
// watermark. The first true item terminates the sequence: for a
// time-descending listing, everything after it has already been synced.
type CutoffFunc func(item domain.RawItem) bool

// PageFunc consumes one page. Returning an error terminates the
// sequence and is scope-fatal.
type PageFunc func(page *driven.Page) error

// Paginator drives a provider listing or change feed in a loop,
// yielding pages until exhaustion, cutoff, or a skip-scope failure.
type Paginator struct {
	fetch      FetchFunc
	classifier *FailureClassifier

	// cutoff is nil for snapshot and token-delta pagination, set for
	// watermark-based delta.
	cutoff CutoffFunc
}

// NewPaginator creates a paginator over a fetch function.
func NewPaginator(fetch FetchFunc, classifier *FailureClassifier, cutoff CutoffFunc) *Paginator {
	return &Paginator{
		fetch:      fetch,
		classifier: classifier,
		cutoff:     cutoff,
	}
}

// Run iterates pages from start until the sequence is exhausted.
// Pages are delivered strictly in fetch order.
//
// A fetch failure classified skip-scope ends the sequence early without
// error and reports (skipped=true, warn per the decision). Any other
// fetch failure, and any error from fn, is fatal for the scope.
func (p *Paginator) Run(ctx context.Context, start string, fn PageFunc) (skipped, warned bool, err error) {
	cursor := start

	for {
		select {
		case <-ctx.Done():
			return false, false, ctx.Err()
		default:
		}

		page, err := p.fetch(ctx, cursor)
		if err != nil {
			decision := p.classifier.Classify(err, OpContext{Op: OpContainerList})
			switch decision {
			case DecisionSkipScope:
				logger.Info("Skipping scope: %v", err)
				return true, false, nil
			case DecisionSkipScopeWarn:
				logger.Warn("Skipping scope (may need re-auth): %v", err)
				return true, true, nil
			default:
				return false, false, fmt.Errorf("fetch page: %w", err)
			}
		}

		done := false
		if p.cutoff != nil {
			// Stop at the first item at or before the watermark. This is
			// an ordering dependency of time-descending delta listings,
			// not an optimisation: newer items are guaranteed to appear
			// first, so everything past the cutoff is already synced.
			for i, item := range page.Items {
				if p.cutoff(item) {
					page.Items = page.Items[:i]
					done = true
					break
				}
			}
		}

		if err := fn(page); err != nil {
			return false, false, err
		}

		if done || page.NextCursor == "" {
			return false, false, nil
		}
		cursor = page.NextCursor
	}
}
