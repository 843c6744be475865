package driven

import (
	"context"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// RecordWithPermissions pairs a record with its resolved permission set,
// the unit of batch persistence.
type RecordWithPermissions struct {
	Record      domain.Record
	Permissions []domain.Permission

	// MergePermissions requests an additive merge instead of replacing
	// the stored permission set. Set for fallback (provisional) grants,
	// which must never revoke previously known authoritative grants.
	MergePermissions bool
}

// GroupEdge is a parent-child hierarchy edge between two record groups.
// Edges are only created after both endpoint nodes exist (two-pass
// construction).
type GroupEdge struct {
	ChildExternalID  string
	ParentExternalID string
}

// RecordStore persists records, record groups and permissions.
// Upserts are keyed by (instance id, external id) and are idempotent:
// re-committing the same record updates in place. Any mutual exclusion
// needed for concurrent upserts is owned by the store's transactional
// guarantees, not by the engine.
type RecordStore interface {
	// GetByExternalID retrieves a record by its provider identity.
	// Returns domain.ErrNotFound when absent.
	GetByExternalID(ctx context.Context, instanceID, externalID string) (*domain.Record, error)

	// GetPermissions returns the stored permission set for a record.
	GetPermissions(ctx context.Context, instanceID, externalID string) ([]domain.Permission, error)

	// UpsertRecords stores a batch of records with their permissions.
	// The call is atomic per batch as far as the backing store allows;
	// it is not required to span engine batch boundaries.
	UpsertRecords(ctx context.Context, items []RecordWithPermissions) error

	// RetractRecord soft-deletes a record by provider identity.
	// Retracting an unknown record is not an error.
	RetractRecord(ctx context.Context, instanceID, externalID string) error

	// UpsertGroups stores container nodes. Pass 1 of hierarchy
	// construction: no edges are written here.
	UpsertGroups(ctx context.Context, groups []domain.RecordGroup) error

	// SaveGroupEdges creates parent-child edges between groups already
	// persisted by UpsertGroups. The store may reject edges whose
	// endpoints are missing; the engine guarantees creation order.
	SaveGroupEdges(ctx context.Context, instanceID string, edges []GroupEdge) error

	// ListRecords returns all live records for an instance.
	ListRecords(ctx context.Context, instanceID string) ([]domain.Record, error)
}

// EntitySink receives fully resolved records for downstream indexing,
// plus discrete deletion and update-kind notifications for records
// already known. Deletions bypass the batch committer and arrive here
// directly.
type EntitySink interface {
	// RecordsCommitted is called after each successful batch flush with
	// the flushed tuples.
	RecordsCommitted(ctx context.Context, items []RecordWithPermissions) error

	// RecordUpdated notifies an incremental update with its fine-grained
	// change flags (metadata-only, content-only, permissions-only).
	RecordUpdated(ctx context.Context, update *domain.RecordUpdate) error

	// RecordDeleted notifies a retraction.
	RecordDeleted(ctx context.Context, instanceID, externalID string) error
}
