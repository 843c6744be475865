package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/logger"
)

// DefaultBatchSize is the flush threshold when none is configured.
const DefaultBatchSize = 100

// BatchCommitter accumulates classified, permission-resolved items for
// one scope and flushes them to the record store in bounded batches.
//
// The buffer is scope-local and never shared. The mutex guarantees
// exactly one flush in flight per scope. After each successful flush the
// scope's checkpoint is advanced to the last noted cursor boundary.
// Flush success is always observed before the checkpoint write, so a
// crash between the two at worst re-processes already-flushed items,
// which idempotent upsert makes harmless.
type BatchCommitter struct {
	store      driven.RecordStore
	sink       driven.EntitySink
	syncPoints driven.SyncPointStore

	scopeKey  string
	threshold int

	mu      sync.Mutex
	pending []driven.RecordWithPermissions

	// cursor is the resume boundary covering everything currently
	// pending, noted by the scope sync at page boundaries. Empty means
	// no safe boundary has been reached yet.
	cursor string
}

// NewBatchCommitter creates a committer for one scope.
func NewBatchCommitter(
	store driven.RecordStore, sink driven.EntitySink, syncPoints driven.SyncPointStore,
	scopeKey string, threshold int,
) *BatchCommitter {
	if threshold <= 0 {
		threshold = DefaultBatchSize
	}
	return &BatchCommitter{
		store:      store,
		sink:       sink,
		syncPoints: syncPoints,
		scopeKey:   scopeKey,
		threshold:  threshold,
	}
}

// Add buffers one item, flushing automatically when the pending batch
// reaches the configured threshold.
func (c *BatchCommitter) Add(ctx context.Context, item driven.RecordWithPermissions) error {
	c.mu.Lock()
	c.pending = append(c.pending, item)
	full := len(c.pending) >= c.threshold
	c.mu.Unlock()

	if full {
		return c.Flush(ctx)
	}
	return nil
}

// NoteCursor records a resume boundary: the cursor from which a crashed
// run can safely restart once everything buffered so far is flushed.
// Called by the scope sync after each fully iterated page.
func (c *BatchCommitter) NoteCursor(cursor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = cursor
}

// Flush commits the pending batch. Store failure is scope-fatal and
// leaves the checkpoint untouched; the checkpoint write only follows an
// observed flush success.
func (c *BatchCommitter) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) > 0 {
		if err := c.store.UpsertRecords(ctx, c.pending); err != nil {
			return fmt.Errorf("flush batch: %w", err)
		}

		if c.sink != nil {
			if err := c.sink.RecordsCommitted(ctx, c.pending); err != nil {
				// The batch is durably stored; a sink hiccup is logged
				// and the records are re-announced on the next change.
				logger.Warn("Entity sink rejected batch for %s: %v", c.scopeKey, err)
			}
		}

		logger.Debug("Flushed %d records for %s", len(c.pending), c.scopeKey)
		c.pending = c.pending[:0]
	}

	if c.cursor != "" {
		point := domain.SyncPoint{
			Key:       c.scopeKey,
			Cursor:    c.cursor,
			UpdatedAt: time.Now().UTC(),
		}
		if err := c.syncPoints.Save(ctx, point); err != nil {
			return fmt.Errorf("advance checkpoint: %w", err)
		}
		c.cursor = ""
	}

	return nil
}

// Pending returns the number of buffered items.
func (c *BatchCommitter) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
