package domain

import "time"

// IndexingStatus tracks where a record sits in the downstream indexing pipeline.
type IndexingStatus string

const (
	// IndexingPending indicates the record is committed but not yet indexed.
	IndexingPending IndexingStatus = "pending"

	// IndexingComplete indicates the record has been indexed.
	IndexingComplete IndexingStatus = "complete"

	// IndexingFailed indicates downstream indexing failed for this record.
	IndexingFailed IndexingStatus = "failed"
)

// Record represents a synced content unit: a file, page, article or
// container row observed at a provider.
//
// The pair (InstanceID, ExternalID) is unique and immutable once assigned.
// The internal ID is assigned exactly once, on first observation, and is
// never reused, so downstream consumers can rely on it across updates.
type Record struct {
	// ID is the internal identifier, assigned once and stable across updates.
	ID string

	// InstanceID identifies the connector instance that owns this record.
	InstanceID string

	// ExternalID is the provider-native identifier, unique within an instance.
	ExternalID string

	// ExternalRevision is an opaque revision marker (etag, head revision id,
	// or last-modified timestamp) used for change detection. May be empty.
	ExternalRevision string

	// Kind tags the record type (e.g. "file", "page", "issue").
	Kind string

	// Name is the display name reported by the provider.
	Name string

	// GroupExternalID is the external id of the owning record group, if any.
	GroupExternalID string

	// ParentExternalID is the external id of the parent record, if any.
	ParentExternalID string

	// Version is a monotonic counter incremented on each content change.
	Version int

	// Status is the downstream indexing status.
	Status IndexingStatus

	// Deleted marks a retracted (soft-deleted) record.
	Deleted bool

	// SourceCreatedAt is the creation time reported by the provider.
	SourceCreatedAt time.Time

	// SourceUpdatedAt is the last-modified time reported by the provider.
	SourceUpdatedAt time.Time

	// CreatedAt is when the record was first observed locally.
	CreatedAt time.Time

	// UpdatedAt is when the record was last written locally.
	UpdatedAt time.Time
}

// RecordGroup represents a container: a drive, workspace, knowledge base
// or category. Group hierarchy edges form a DAG per connector instance;
// nodes are always created before edges (two-pass construction), so an
// edge never references a missing group.
type RecordGroup struct {
	// InstanceID identifies the connector instance that owns this group.
	InstanceID string

	// ExternalID is the provider-native group identifier.
	ExternalID string

	// Name is the display name.
	Name string

	// Kind tags the group type (e.g. "drive", "workspace", "database").
	Kind string

	// ParentExternalID is the external id of the parent group, if any.
	ParentExternalID string

	// Description is an optional free-text description.
	Description string
}
