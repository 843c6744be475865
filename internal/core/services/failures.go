package services

import (
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// Decision is the failure classifier's verdict for a provider error.
type Decision int

const (
	// DecisionSkipItem drops the current item; the page continues and
	// the item is revisited next sync.
	DecisionSkipItem Decision = iota

	// DecisionSkipScope abandons the current scope cleanly: logged,
	// siblings unaffected, checkpoint untouched.
	DecisionSkipScope

	// DecisionSkipScopeWarn is DecisionSkipScope surfaced as a warning
	// (the container may need re-auth).
	DecisionSkipScopeWarn

	// DecisionFallbackPermission synthesises a provisional grant for
	// the acting identity instead of failing the item.
	DecisionFallbackPermission

	// DecisionAbortScope is scope-fatal: the scope's sync stops, its
	// checkpoint is not advanced, and it retries next run.
	DecisionAbortScope
)

// String returns the canonical name for the decision.
func (d Decision) String() string {
	switch d {
	case DecisionSkipItem:
		return "skip-item"
	case DecisionSkipScope:
		return "skip-scope"
	case DecisionSkipScopeWarn:
		return "skip-scope-warn"
	case DecisionFallbackPermission:
		return "fallback-permission"
	case DecisionAbortScope:
		return "abort-scope"
	default:
		return "unknown"
	}
}

// Operation identifies where in the sync flow a failure occurred.
type Operation int

const (
	// OpContainerList is a container/scope listing call.
	OpContainerList Operation = iota

	// OpItemPermissions is a per-item permission fetch.
	OpItemPermissions

	// OpItemProcess is item-level transform/validate work.
	OpItemProcess

	// OpCheckpoint is a sync point read or write.
	OpCheckpoint

	// OpFlush is a batch flush to the record store.
	OpFlush
)

// OpContext carries the operation context the classifier needs.
type OpContext struct {
	Op Operation

	// ActingIdentity is the sync identity, empty when unknown. A known
	// identity is required for the fallback-permission decision.
	ActingIdentity string
}

// FailureClassifier inspects provider errors and decides how the sync
// flow proceeds. Expected skip paths are resolved here as explicit
// decisions; only genuinely unexpected faults propagate as errors.
type FailureClassifier struct{}

// NewFailureClassifier creates a failure classifier.
func NewFailureClassifier() *FailureClassifier {
	return &FailureClassifier{}
}

// Classify applies the decision table.
func (c *FailureClassifier) Classify(err error, op OpContext) Decision {
	switch op.Op {
	case OpCheckpoint, OpFlush:
		// Store failures are always scope-fatal; advancing a checkpoint
		// past an unflushed batch would silently lose data.
		return DecisionAbortScope

	case OpContainerList:
		if domain.IsForbidden(err) && domain.ProviderReason(err) == domain.ReasonMembershipRequired {
			return DecisionSkipScope
		}
		return DecisionSkipScopeWarn

	case OpItemPermissions:
		if domain.IsForbidden(err) {
			if domain.ProviderReason(err) == domain.ReasonInsufficientPermissions && op.ActingIdentity != "" {
				return DecisionFallbackPermission
			}
			// Forbidden with no viable fallback: persist the item with
			// no permissions and revisit next sync.
			return DecisionSkipItem
		}
		return DecisionSkipItem

	case OpItemProcess:
		return DecisionSkipItem

	default:
		return DecisionAbortScope
	}
}
