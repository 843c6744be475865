package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// ChangeDetector classifies raw items against previously synced state.
type ChangeDetector struct {
	instanceID string
}

// NewChangeDetector creates a change detector for a connector instance.
func NewChangeDetector(instanceID string) *ChangeDetector {
	return &ChangeDetector{instanceID: instanceID}
}

// Classify compares a raw item with the existing record (nil when the
// item has never been seen) and produces the diff handed to the batch
// committer. Permission flags are set separately via MarkPermissions
// once the permission resolver has run.
func (d *ChangeDetector) Classify(item domain.RawItem, existing *domain.Record) *domain.RecordUpdate {
	now := time.Now().UTC()

	if item.Removed {
		update := &domain.RecordUpdate{Classification: domain.ClassificationDeleted}
		if existing != nil {
			update.Record = existing
		}
		return update
	}

	if existing == nil {
		return &domain.RecordUpdate{
			Classification: domain.ClassificationNew,
			Record: &domain.Record{
				ID:               uuid.NewString(),
				InstanceID:       d.instanceID,
				ExternalID:       item.ExternalID,
				ExternalRevision: item.Revision,
				Kind:             item.Kind,
				Name:             item.Name,
				GroupExternalID:  item.GroupExternalID,
				ParentExternalID: item.ParentExternalID,
				Version:          0,
				Status:           domain.IndexingPending,
				SourceCreatedAt:  item.SourceCreatedAt,
				SourceUpdatedAt:  item.SourceUpdatedAt,
				CreatedAt:        now,
				UpdatedAt:        now,
			},
		}
	}

	// Work on a copy: the caller's record must stay untouched until the
	// batch is flushed.
	next := *existing
	update := &domain.RecordUpdate{Record: &next}

	// Revision marker differs, or is newly present: content changed.
	if item.Revision != existing.ExternalRevision {
		update.ContentChanged = true
		next.ExternalRevision = item.Revision
		next.Version = existing.Version + 1
		next.Status = domain.IndexingPending
	}

	// Structural metadata, field by field.
	if item.Name != existing.Name {
		update.MetadataChanged = true
		next.Name = item.Name
	}
	if item.ParentExternalID != existing.ParentExternalID {
		update.MetadataChanged = true
		next.ParentExternalID = item.ParentExternalID
	}

	// Container placement: a record newly assigned to (or moved between)
	// groups is an update even without a content change.
	if item.GroupExternalID != existing.GroupExternalID {
		update.MetadataChanged = true
		next.GroupExternalID = item.GroupExternalID
	}

	// A previously retracted record reappearing in the feed is restored.
	if existing.Deleted {
		update.MetadataChanged = true
		next.Deleted = false
	}

	if update.Changed() {
		next.SourceUpdatedAt = item.SourceUpdatedAt
		next.UpdatedAt = now
		update.Classification = domain.ClassificationUpdated
	} else {
		update.Classification = domain.ClassificationUnchanged
	}

	return update
}

// MarkPermissions records the resolved permission set on the update and
// re-evaluates the classification: a permissions-only difference makes
// an otherwise unchanged item Updated.
//
// A nil resolved set outside the fallback path means no permission
// information was obtained this pass (a skip decision); the stored set
// is left alone and no diff is taken. A fallback set is not comparable
// with the authoritative stored set, so it only counts as a change
// while its subject is still missing from the store. Once the merged
// grant is persisted, later fallback passes read as unchanged.
func (d *ChangeDetector) MarkPermissions(
	update *domain.RecordUpdate, resolved []domain.Permission, stored []domain.Permission, isFallback bool,
) {
	update.Permissions = resolved
	update.IsFallback = isFallback

	if resolved == nil && !isFallback {
		return
	}

	if update.Classification == domain.ClassificationNew {
		// New records carry their permission set; no diff to take.
		return
	}

	if isFallback {
		if !subjectsPresent(stored, resolved) {
			update.PermissionsChanged = true
			update.Record.UpdatedAt = time.Now().UTC()
		}
	} else if !permissionSetsEqual(resolved, stored) {
		update.PermissionsChanged = true
		update.Record.UpdatedAt = time.Now().UTC()
	}

	if update.Changed() {
		update.Classification = domain.ClassificationUpdated
	} else {
		update.Classification = domain.ClassificationUnchanged
	}
}

// subjectsPresent reports whether every (subject, kind) pair in grants
// already holds some grant in stored. Roles are ignored: an additive
// merge never downgrades an existing grant.
func subjectsPresent(stored, grants []domain.Permission) bool {
	for _, g := range grants {
		found := false
		for _, s := range stored {
			if s.Subject == g.Subject && s.Kind == g.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// permissionSetsEqual compares two permission sets ignoring order.
func permissionSetsEqual(a, b []domain.Permission) bool {
	if len(a) != len(b) {
		return false
	}

	key := func(p domain.Permission) string {
		return string(p.Kind) + "\x00" + p.Subject + "\x00" + p.Role.String()
	}

	ka := make([]string, len(a))
	kb := make([]string, len(b))
	for i := range a {
		ka[i] = key(a[i])
	}
	for i := range b {
		kb[i] = key(b[i])
	}
	sort.Strings(ka)
	sort.Strings(kb)

	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}
