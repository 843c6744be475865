package services

import (
	"context"
	"fmt"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// HierarchyBuilder persists container nodes and their parent edges
// using two-pass construction: every node observed during a scope's
// pagination is upserted before any edge referencing it is created.
// Providers list containers in arbitrary order, so a page can name a
// parent that only appears pages later; edges are therefore buffered
// until the whole stream has been walked. Creating an edge before its
// target node exists is an error the store rejects, so the ordering is
// a correctness requirement, not a performance choice.
type HierarchyBuilder struct {
	store driven.RecordStore
	edges []driven.GroupEdge
}

// NewHierarchyBuilder creates a hierarchy builder over a record store.
func NewHierarchyBuilder(store driven.RecordStore) *HierarchyBuilder {
	return &HierarchyBuilder{store: store}
}

// AddPage persists the container nodes of one page (parent linkage
// stripped) and buffers their edges for the flush pass. An item
// declaring itself as its own parent is dropped from the edge set,
// keeping the hierarchy a DAG.
func (b *HierarchyBuilder) AddPage(ctx context.Context, instanceID string, containers []domain.RawItem) error {
	if len(containers) == 0 {
		return nil
	}

	groups := make([]domain.RecordGroup, 0, len(containers))

	for _, item := range containers {
		groups = append(groups, domain.RecordGroup{
			InstanceID:  instanceID,
			ExternalID:  item.ExternalID,
			Name:        item.Name,
			Kind:        item.Kind,
			Description: item.Description,
			// ParentExternalID intentionally left empty: edges are
			// created in pass 2, after every node exists.
		})

		if item.ParentExternalID != "" && item.ParentExternalID != item.ExternalID {
			b.edges = append(b.edges, driven.GroupEdge{
				ChildExternalID:  item.ExternalID,
				ParentExternalID: item.ParentExternalID,
			})
		}
	}

	if err := b.store.UpsertGroups(ctx, groups); err != nil {
		return fmt.Errorf("upsert groups: %w", err)
	}

	return nil
}

// Flush creates the buffered edges. Call once per scope, after the
// pagination stream is exhausted.
func (b *HierarchyBuilder) Flush(ctx context.Context, instanceID string) error {
	if len(b.edges) == 0 {
		return nil
	}

	if err := b.store.SaveGroupEdges(ctx, instanceID, b.edges); err != nil {
		return fmt.Errorf("save group edges: %w", err)
	}

	b.edges = nil
	return nil
}
