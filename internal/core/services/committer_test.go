package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/adapters/driven/storage/memory"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// failingRecordStore wraps the memory store and fails flushes on demand.
type failingRecordStore struct {
	*memory.RecordStore
	failUpserts bool
}

func (s *failingRecordStore) UpsertRecords(ctx context.Context, items []driven.RecordWithPermissions) error {
	if s.failUpserts {
		return errors.New("store unavailable")
	}
	return s.RecordStore.UpsertRecords(ctx, items)
}

func committerItem(externalID string) driven.RecordWithPermissions {
	return driven.RecordWithPermissions{
		Record: domain.Record{
			ID:         "id-" + externalID,
			InstanceID: "inst-1",
			ExternalID: externalID,
		},
	}
}

func TestBatchCommitter_Add_AutoFlushAtThreshold(t *testing.T) {
	store := memory.NewRecordStore()
	syncPoints := memory.NewSyncPointStore()
	committer := NewBatchCommitter(store, nil, syncPoints, "inst-1/records:drives:d-1", 2)

	ctx := context.Background()

	require.NoError(t, committer.Add(ctx, committerItem("f1")))
	assert.Equal(t, 1, committer.Pending())

	// Second add reaches the threshold and flushes.
	require.NoError(t, committer.Add(ctx, committerItem("f2")))
	assert.Equal(t, 0, committer.Pending())

	recs, err := store.ListRecords(ctx, "inst-1")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestBatchCommitter_Flush_AdvancesCheckpointAfterBatch(t *testing.T) {
	store := memory.NewRecordStore()
	syncPoints := memory.NewSyncPointStore()
	key := "inst-1/records:drives:d-1"
	committer := NewBatchCommitter(store, nil, syncPoints, key, 10)

	ctx := context.Background()

	require.NoError(t, committer.Add(ctx, committerItem("f1")))
	committer.NoteCursor("cursor-page-2")
	require.NoError(t, committer.Flush(ctx))

	point, err := syncPoints.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "cursor-page-2", point.Cursor)
	assert.False(t, point.UpdatedAt.IsZero())
}

func TestBatchCommitter_Flush_NoCursorNoCheckpoint(t *testing.T) {
	store := memory.NewRecordStore()
	syncPoints := memory.NewSyncPointStore()
	key := "inst-1/records:drives:d-1"
	committer := NewBatchCommitter(store, nil, syncPoints, key, 10)

	ctx := context.Background()

	// No resume boundary noted: records flush but the checkpoint stays put.
	require.NoError(t, committer.Add(ctx, committerItem("f1")))
	require.NoError(t, committer.Flush(ctx))

	_, err := syncPoints.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBatchCommitter_Flush_StoreFailureKeepsCheckpoint(t *testing.T) {
	store := &failingRecordStore{RecordStore: memory.NewRecordStore(), failUpserts: true}
	syncPoints := memory.NewSyncPointStore()
	key := "inst-1/records:drives:d-1"
	committer := NewBatchCommitter(store, nil, syncPoints, key, 10)

	ctx := context.Background()

	require.NoError(t, committer.Add(ctx, committerItem("f1")))
	committer.NoteCursor("cursor-page-2")

	// The flush fails; a crash here must not advance the checkpoint, or
	// the unflushed batch would be skipped on restart.
	err := committer.Flush(ctx)
	require.Error(t, err)

	_, err = syncPoints.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The batch is still pending and flushes once the store recovers.
	assert.Equal(t, 1, committer.Pending())
	store.failUpserts = false
	require.NoError(t, committer.Flush(ctx))

	point, err := syncPoints.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "cursor-page-2", point.Cursor)
}

func TestBatchCommitter_Flush_EmptyBatchStillCheckpoints(t *testing.T) {
	store := memory.NewRecordStore()
	syncPoints := memory.NewSyncPointStore()
	key := "inst-1/records:drives:d-1"
	committer := NewBatchCommitter(store, nil, syncPoints, key, 10)

	ctx := context.Background()

	// An all-unchanged page has nothing to flush, but the scope still
	// finished the page and may record its boundary.
	committer.NoteCursor("cursor-final")
	require.NoError(t, committer.Flush(ctx))

	point, err := syncPoints.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "cursor-final", point.Cursor)
}
