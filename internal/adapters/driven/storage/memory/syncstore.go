package memory

import (
	"context"
	"sync"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// Ensure SyncPointStore implements the interface.
var _ driven.SyncPointStore = (*SyncPointStore)(nil)

// SyncPointStore is an in-memory implementation of driven.SyncPointStore.
// Writes are last-write-wins per scope key.
type SyncPointStore struct {
	mu     sync.RWMutex
	points map[string]domain.SyncPoint
}

// NewSyncPointStore creates a new in-memory sync point store.
func NewSyncPointStore() *SyncPointStore {
	return &SyncPointStore{
		points: make(map[string]domain.SyncPoint),
	}
}

// Save stores or updates a sync point.
func (s *SyncPointStore) Save(_ context.Context, point domain.SyncPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[point.Key] = point
	return nil
}

// Get retrieves the sync point for a scope key.
func (s *SyncPointStore) Get(_ context.Context, key string) (*domain.SyncPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	point, ok := s.points[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &point, nil
}

// Delete removes the sync point for a scope key.
func (s *SyncPointStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.points, key)
	return nil
}
