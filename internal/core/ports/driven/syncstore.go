package driven

import (
	"context"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// SyncPointStore persists per-scope checkpoints. Writes are
// last-write-wins per scope key; readers never block writers.
type SyncPointStore interface {
	// Save stores or updates a sync point.
	Save(ctx context.Context, point domain.SyncPoint) error

	// Get retrieves the sync point for a scope key. Returns
	// domain.ErrNotFound when no checkpoint exists, which is a
	// meaningful state: it triggers a full pass.
	Get(ctx context.Context, key string) (*domain.SyncPoint, error)

	// Delete removes the sync point for a scope key.
	Delete(ctx context.Context, key string) error
}
