// Package memory provides in-memory implementations of the storage
// ports. Used as test doubles and for ephemeral development runs; all
// operations are safe for concurrent use across scopes.
package memory

import (
	"context"
	"sync"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// recordKey identifies a record within the store.
type recordKey struct {
	instanceID string
	externalID string
}

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[recordKey]domain.Record
	perms   map[recordKey][]domain.Permission
	groups  map[recordKey]domain.RecordGroup
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[recordKey]domain.Record),
		perms:   make(map[recordKey][]domain.Permission),
		groups:  make(map[recordKey]domain.RecordGroup),
	}
}

// GetByExternalID retrieves a record by its provider identity.
func (s *RecordStore) GetByExternalID(_ context.Context, instanceID, externalID string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey{instanceID, externalID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// GetPermissions returns the stored permission set for a record.
func (s *RecordStore) GetPermissions(_ context.Context, instanceID, externalID string) ([]domain.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perms := s.perms[recordKey{instanceID, externalID}]
	out := make([]domain.Permission, len(perms))
	copy(out, perms)
	return out, nil
}

// UpsertRecords stores a batch of records with their permissions.
// Upsert is keyed by (instance id, external id): the internal id and
// creation time of an existing record are preserved.
func (s *RecordStore) UpsertRecords(_ context.Context, items []driven.RecordWithPermissions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		key := recordKey{item.Record.InstanceID, item.Record.ExternalID}
		rec := item.Record

		if prev, ok := s.records[key]; ok {
			rec.ID = prev.ID
			rec.CreatedAt = prev.CreatedAt
		}
		s.records[key] = rec

		if item.MergePermissions {
			s.perms[key] = mergeGrants(s.perms[key], item.Permissions)
		} else if item.Permissions != nil {
			perms := make([]domain.Permission, len(item.Permissions))
			copy(perms, item.Permissions)
			s.perms[key] = perms
		}
	}
	return nil
}

// mergeGrants adds grants absent from existing; prior grants remain.
func mergeGrants(existing, add []domain.Permission) []domain.Permission {
	merged := make([]domain.Permission, len(existing))
	copy(merged, existing)

	for _, p := range add {
		found := false
		for _, e := range merged {
			if e.Subject == p.Subject && e.Kind == p.Kind {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, p)
		}
	}
	return merged
}

// RetractRecord soft-deletes a record. Unknown records are ignored.
func (s *RecordStore) RetractRecord(_ context.Context, instanceID, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{instanceID, externalID}
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	rec.Deleted = true
	s.records[key] = rec
	return nil
}

// UpsertGroups stores container nodes, preserving any parent linkage
// already established by SaveGroupEdges.
func (s *RecordStore) UpsertGroups(_ context.Context, groups []domain.RecordGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range groups {
		key := recordKey{g.InstanceID, g.ExternalID}
		if prev, ok := s.groups[key]; ok && g.ParentExternalID == "" {
			g.ParentExternalID = prev.ParentExternalID
		}
		s.groups[key] = g
	}
	return nil
}

// SaveGroupEdges creates parent-child edges. An edge whose endpoints
// are missing is rejected, mirroring the contract the engine's two-pass
// ordering exists to satisfy.
func (s *RecordStore) SaveGroupEdges(_ context.Context, instanceID string, edges []driven.GroupEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range edges {
		child := recordKey{instanceID, e.ChildExternalID}
		parent := recordKey{instanceID, e.ParentExternalID}

		g, ok := s.groups[child]
		if !ok {
			return domain.ErrNotFound
		}
		if _, ok := s.groups[parent]; !ok {
			return domain.ErrNotFound
		}

		g.ParentExternalID = e.ParentExternalID
		s.groups[child] = g
	}
	return nil
}

// ListRecords returns all live records for an instance.
func (s *RecordStore) ListRecords(_ context.Context, instanceID string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Record
	for key, rec := range s.records {
		if key.instanceID == instanceID && !rec.Deleted {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetGroup retrieves a group by external id. Test helper.
func (s *RecordStore) GetGroup(instanceID, externalID string) (*domain.RecordGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[recordKey{instanceID, externalID}]
	if !ok {
		return nil, false
	}
	return &g, true
}
