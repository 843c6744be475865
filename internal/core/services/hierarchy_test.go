package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/adapters/driven/storage/memory"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

func TestHierarchyBuilder_NodesBeforeEdges(t *testing.T) {
	store := memory.NewRecordStore()
	builder := NewHierarchyBuilder(store)
	ctx := context.Background()

	containers := []domain.RawItem{
		{ExternalID: "drive-a", Kind: "drive", Name: "Drive A"},
		{ExternalID: "folder-1", Kind: "folder", Name: "Docs", ParentExternalID: "drive-a"},
	}

	require.NoError(t, builder.AddPage(ctx, "inst-1", containers))

	// Nodes exist immediately, without parent linkage.
	g, ok := store.GetGroup("inst-1", "folder-1")
	require.True(t, ok)
	assert.Empty(t, g.ParentExternalID)

	require.NoError(t, builder.Flush(ctx, "inst-1"))

	g, ok = store.GetGroup("inst-1", "folder-1")
	require.True(t, ok)
	assert.Equal(t, "drive-a", g.ParentExternalID)
}

func TestHierarchyBuilder_CrossPageParent(t *testing.T) {
	store := memory.NewRecordStore()
	builder := NewHierarchyBuilder(store)
	ctx := context.Background()

	// The child arrives a page before its parent; the edge must still land.
	page1 := []domain.RawItem{
		{ExternalID: "folder-2", Kind: "folder", ParentExternalID: "folder-1"},
	}
	page2 := []domain.RawItem{
		{ExternalID: "folder-1", Kind: "folder"},
	}

	require.NoError(t, builder.AddPage(ctx, "inst-1", page1))
	require.NoError(t, builder.AddPage(ctx, "inst-1", page2))
	require.NoError(t, builder.Flush(ctx, "inst-1"))

	g, ok := store.GetGroup("inst-1", "folder-2")
	require.True(t, ok)
	assert.Equal(t, "folder-1", g.ParentExternalID)
}

func TestHierarchyBuilder_SelfParentDropped(t *testing.T) {
	store := memory.NewRecordStore()
	builder := NewHierarchyBuilder(store)
	ctx := context.Background()

	containers := []domain.RawItem{
		{ExternalID: "loop", Kind: "folder", ParentExternalID: "loop"},
	}

	require.NoError(t, builder.AddPage(ctx, "inst-1", containers))
	require.NoError(t, builder.Flush(ctx, "inst-1"))

	g, ok := store.GetGroup("inst-1", "loop")
	require.True(t, ok)
	assert.Empty(t, g.ParentExternalID)
}

func TestHierarchyBuilder_EdgeToUnknownParent(t *testing.T) {
	store := memory.NewRecordStore()
	builder := NewHierarchyBuilder(store)
	ctx := context.Background()

	containers := []domain.RawItem{
		{ExternalID: "folder-1", Kind: "folder", ParentExternalID: "never-seen"},
	}

	require.NoError(t, builder.AddPage(ctx, "inst-1", containers))

	err := builder.Flush(ctx, "inst-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHierarchyBuilder_EmptyPage(t *testing.T) {
	store := memory.NewRecordStore()
	builder := NewHierarchyBuilder(store)
	ctx := context.Background()

	require.NoError(t, builder.AddPage(ctx, "inst-1", nil))
	require.NoError(t, builder.Flush(ctx, "inst-1"))
}
