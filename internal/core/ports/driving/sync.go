package driving

import (
	"context"
	"time"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// ScopeResult reports the outcome of one scope's sync. A scope either
// completes (Err nil, possibly with skipped items) or aborts (Err set,
// checkpoint not advanced).
type ScopeResult struct {
	Scope driven.Scope

	// Err is the scope-fatal error, nil on completion.
	Err error

	// Item counters.
	New       int
	Updated   int
	Unchanged int
	Deleted   int

	// SkippedItems counts items dropped by skip-item decisions.
	SkippedItems int

	// Skipped marks a scope skipped whole (skip-scope decision).
	Skipped bool

	// Warnings counts skip decisions surfaced as warnings (e.g. a
	// container that may need re-auth).
	Warnings int
}

// RunReport summarises one sync run. A run completes with partial
// success by design: some scopes or items may be skipped and logged
// while the run itself reports success, so completion is not
// equivalent to completeness.
type RunReport struct {
	Instance string
	Scopes   []ScopeResult
	Started  time.Time
	Finished time.Time
}

// Failed returns the scopes that aborted.
func (r *RunReport) Failed() []ScopeResult {
	var failed []ScopeResult
	for _, s := range r.Scopes {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// SyncOrchestrator runs reconciliation for a provider source.
type SyncOrchestrator interface {
	// Run enumerates the source's scopes and syncs each with bounded
	// parallelism. Only engine-fatal errors (initialisation failures)
	// are returned; per-scope failures are isolated into the report.
	Run(ctx context.Context, source driven.ProviderSource) (*RunReport, error)
}
