package domain

import "time"

// RawItem is one provider item decoded at the provider client boundary.
// The engine never operates on untyped provider payloads; each connector
// maps its native JSON into this struct before reconciliation.
type RawItem struct {
	// ExternalID is the provider-native identifier.
	ExternalID string

	// Revision is the opaque revision marker, if the provider has one.
	Revision string

	// Kind tags the item type.
	Kind string

	// Name is the display name.
	Name string

	// GroupExternalID is the owning container's external id, if any.
	GroupExternalID string

	// ParentExternalID is the parent item's external id, if any.
	ParentExternalID string

	// IsContainer marks items that describe a container (drive, database)
	// rather than a content unit. Containers feed the two-pass hierarchy
	// builder, not the record committer.
	IsContainer bool

	// Removed marks an explicit removal from a provider delta feed.
	Removed bool

	// LinkShareRole carries a discovered anyone-with-link role
	// (provider-native vocabulary) when the item metadata exposes one.
	// Used by the permission fallback path.
	LinkShareRole string

	// Description is an optional free-text description (containers only).
	Description string

	// SourceCreatedAt is the creation time reported by the provider.
	SourceCreatedAt time.Time

	// SourceUpdatedAt is the last-modified time reported by the provider.
	// Watermark-based delta pagination depends on this field.
	SourceUpdatedAt time.Time
}

// Classification is the change detector's verdict for one raw item.
type Classification int

const (
	// ClassificationNew indicates no record exists for the item yet.
	ClassificationNew Classification = iota

	// ClassificationUpdated indicates at least one change flag is set.
	ClassificationUpdated

	// ClassificationUnchanged indicates the item matches the stored record.
	ClassificationUnchanged

	// ClassificationDeleted indicates an explicit removal marker.
	ClassificationDeleted
)

// String returns the canonical name for the classification.
func (c Classification) String() string {
	switch c {
	case ClassificationNew:
		return "new"
	case ClassificationUpdated:
		return "updated"
	case ClassificationUnchanged:
		return "unchanged"
	case ClassificationDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RecordUpdate is the transient diff result produced by the change
// detector for one raw item. It is the unit handed to the batch
// committer and is never persisted itself.
type RecordUpdate struct {
	// Record is the record as it should be persisted.
	Record *Record

	// Classification is the overall verdict.
	Classification Classification

	// MetadataChanged is set when structural metadata (name, parent
	// linkage, container placement) differs from the stored record.
	MetadataChanged bool

	// ContentChanged is set when the revision marker differs or is
	// newly present.
	ContentChanged bool

	// PermissionsChanged is set when the resolved permission set differs
	// from the stored one.
	PermissionsChanged bool

	// Permissions is the resolved, normalised permission set.
	Permissions []Permission

	// IsFallback signals a provisional permission set synthesised under
	// the fallback policy. Fallback grants are merged additively into
	// existing grants, never used to replace them.
	IsFallback bool
}

// Changed reports whether any change flag is set.
func (u *RecordUpdate) Changed() bool {
	return u.MetadataChanged || u.ContentChanged || u.PermissionsChanged
}
