package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driving"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/logger"
)

// RecordKindRecords is the record-kind segment of sync point keys.
const RecordKindRecords = "records"

// Default orchestration tuning.
const (
	DefaultWorkers  = 4
	DefaultCooldown = 200 * time.Millisecond
)

// Config tunes the orchestrator.
type Config struct {
	// BatchSize is the committer flush threshold.
	BatchSize int

	// Workers bounds the number of concurrently running scopes.
	Workers int

	// Cooldown is the pause between launched scopes, the engine's
	// backpressure against provider rate limits.
	Cooldown time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// Ensure ScopeOrchestrator implements the driving port.
var _ driving.SyncOrchestrator = (*ScopeOrchestrator)(nil)

// ScopeOrchestrator reconciles a provider source against local state:
// it enumerates sync scopes and runs each scope's flow (checkpoint
// read, pagination, change detection, permission resolution, batched
// commit, checkpoint advance) on a bounded worker pool. Scope failures
// are isolated; one scope's error never cancels its siblings.
type ScopeOrchestrator struct {
	store      driven.RecordStore
	syncPoints driven.SyncPointStore
	sink       driven.EntitySink
	classifier *FailureClassifier
	cfg        Config

	mu      sync.Mutex
	running map[string]bool
}

// NewScopeOrchestrator creates an orchestrator. The sink is optional;
// if nil, downstream notifications are disabled.
func NewScopeOrchestrator(
	store driven.RecordStore,
	syncPoints driven.SyncPointStore,
	sink driven.EntitySink,
	cfg Config,
) *ScopeOrchestrator {
	return &ScopeOrchestrator{
		store:      store,
		syncPoints: syncPoints,
		sink:       sink,
		classifier: NewFailureClassifier(),
		cfg:        cfg.withDefaults(),
		running:    make(map[string]bool),
	}
}

// Run syncs every scope of the source with bounded parallelism.
//
// Only engine-fatal errors are returned: a failed scope enumeration
// (initialisation) or a second Run for an instance already in flight.
// Steady-state sync errors land in the report.
func (o *ScopeOrchestrator) Run(ctx context.Context, source driven.ProviderSource) (*driving.RunReport, error) {
	instance := source.Instance()

	o.mu.Lock()
	if o.running[instance] {
		o.mu.Unlock()
		return nil, domain.ErrSyncInProgress
	}
	o.running[instance] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.running, instance)
		o.mu.Unlock()
	}()

	scopes, err := source.Scopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate scopes: %w", err)
	}

	logger.Info("Starting sync for instance %s: %d scopes", instance, len(scopes))

	report := &driving.RunReport{
		Instance: instance,
		Started:  time.Now().UTC(),
	}

	sem := make(chan struct{}, o.cfg.Workers)
	gate := rate.NewLimiter(rate.Every(o.cfg.Cooldown), 1)

	var (
		wg       sync.WaitGroup
		reportMu sync.Mutex
	)

	for _, scope := range scopes {
		if err := gate.Wait(ctx); err != nil {
			break
		}

		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Add(1)
			go func(s driven.Scope) {
				defer wg.Done()
				defer func() { <-sem }()

				result := o.syncScope(ctx, source, s)
				if result.Err != nil {
					logger.Warn("Scope %s/%s aborted: %v", s.Kind, s.ID, result.Err)
				}

				reportMu.Lock()
				report.Scopes = append(report.Scopes, result)
				reportMu.Unlock()
			}(scope)
		}

		if ctx.Err() != nil {
			break
		}
	}

	wg.Wait()
	report.Finished = time.Now().UTC()

	logger.Info("Sync complete for instance %s: %d scopes, %d aborted",
		instance, len(report.Scopes), len(report.Failed()))

	return report, nil
}

// syncScope runs one scope's reconciliation flow end to end. Pages are
// processed strictly in fetch order; the scope's checkpoint only
// advances behind observed flush success.
func (o *ScopeOrchestrator) syncScope(
	ctx context.Context, source driven.ProviderSource, scope driven.Scope,
) driving.ScopeResult {
	result := driving.ScopeResult{Scope: scope}

	instance := source.Instance()
	caps := source.Capabilities()
	detector := NewChangeDetector(instance)
	resolver := NewPermissionResolver(source.RoleMapping(), source.SubjectMapping(), source.ActingIdentity())
	hierarchy := NewHierarchyBuilder(o.store)

	key := domain.SyncPointKey(instance, RecordKindRecords, scope.Kind, scope.ID)

	point, err := o.syncPoints.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		result.Err = fmt.Errorf("read sync point %s: %w", key, err)
		return result
	}

	var start string
	if point != nil {
		start = point.Cursor
	}

	// Watermark delta: decode the stored high-water mark and stop the
	// paginator at the first already-synced item.
	var (
		watermark *domain.WatermarkCursor
		cutoff    CutoffFunc
	)
	if caps.WatermarkOrdered {
		watermark, err = domain.DecodeWatermarkCursor(start)
		if err != nil {
			logger.Warn("Invalid watermark cursor for %s, running full pass", key)
			start = ""
			watermark, _ = domain.DecodeWatermarkCursor("")
		}
		if !watermark.Watermark.IsZero() {
			wm := watermark.Watermark
			cutoff = func(item domain.RawItem) bool {
				// Container items and items without a modification time
				// carry no position in the time-descending order and must
				// never terminate the pass.
				if item.IsContainer || item.SourceUpdatedAt.IsZero() {
					return false
				}
				return !item.SourceUpdatedAt.After(wm)
			}
		}
	}

	committer := NewBatchCommitter(o.store, o.sink, o.syncPoints, key, o.cfg.BatchSize)
	paginator := NewPaginator(func(ctx context.Context, cursor string) (*driven.Page, error) {
		return source.FetchPage(ctx, scope, cursor)
	}, o.classifier, cutoff)

	var (
		deltaCursor string
		maxSeen     time.Time
	)

	skipped, warned, err := paginator.Run(ctx, start, func(page *driven.Page) error {
		// Two-pass hierarchy: every container node in the page is
		// persisted before any record or edge that references it.
		var containers []domain.RawItem
		for _, item := range page.Items {
			if item.SourceUpdatedAt.After(maxSeen) {
				maxSeen = item.SourceUpdatedAt
			}
			if item.IsContainer && !item.Removed {
				containers = append(containers, item)
			}
		}
		if err := hierarchy.AddPage(ctx, instance, containers); err != nil {
			return err
		}

		for _, item := range page.Items {
			if item.Removed {
				if err := o.retract(ctx, instance, item.ExternalID); err != nil {
					return err
				}
				result.Deleted++
				continue
			}
			if item.IsContainer {
				continue
			}
			if err := o.processItem(ctx, source, scope, detector, resolver, committer, item, &result); err != nil {
				return err
			}
		}

		if page.DeltaCursor != "" {
			deltaCursor = page.DeltaCursor
		}

		// Page boundary reached: everything buffered is resumable from
		// the next page's cursor. Watermark scopes cannot checkpoint
		// mid-stream, since a partial watermark would skip the remainder
		// of the window on restart.
		if !caps.WatermarkOrdered && page.NextCursor != "" {
			committer.NoteCursor(page.NextCursor)
		}

		return nil
	})
	if err != nil {
		result.Err = err
		return result
	}
	if skipped {
		result.Skipped = true
		if warned {
			result.Warnings++
		}
		return result
	}

	// Edge pass: every container node of the stream exists by now.
	if err := hierarchy.Flush(ctx, instance); err != nil {
		result.Err = err
		return result
	}

	// Final checkpoint: the delta token reported by the provider, or
	// the advanced (never regressing) watermark.
	switch {
	case deltaCursor != "":
		committer.NoteCursor(deltaCursor)
	case caps.WatermarkOrdered:
		committer.NoteCursor(watermark.Advance(maxSeen).Encode())
	}

	if err := committer.Flush(ctx); err != nil {
		result.Err = err
		return result
	}

	return result
}

// processItem reconciles one non-container item: lookup, classify,
// resolve permissions, buffer for commit.
func (o *ScopeOrchestrator) processItem(
	ctx context.Context,
	source driven.ProviderSource,
	scope driven.Scope,
	detector *ChangeDetector,
	resolver *PermissionResolver,
	committer *BatchCommitter,
	item domain.RawItem,
	result *driving.ScopeResult,
) error {
	instance := source.Instance()

	if item.ExternalID == "" {
		logger.Debug("Skipping item with no external id in scope %s", scope.ID)
		result.SkippedItems++
		return nil
	}

	existing, err := o.store.GetByExternalID(ctx, instance, item.ExternalID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup record %s: %w", item.ExternalID, err)
	}

	update := detector.Classify(item, existing)

	resolved, isFallback, err := o.resolvePermissions(ctx, source, scope, resolver, item, result)
	if err != nil {
		return err
	}

	var stored []domain.Permission
	if existing != nil {
		stored, err = o.store.GetPermissions(ctx, instance, item.ExternalID)
		if err != nil {
			return fmt.Errorf("read permissions %s: %w", item.ExternalID, err)
		}
	}
	detector.MarkPermissions(update, resolved, stored, isFallback)

	switch update.Classification {
	case domain.ClassificationUnchanged:
		result.Unchanged++
		return nil
	case domain.ClassificationNew:
		result.New++
	case domain.ClassificationUpdated:
		result.Updated++
		if o.sink != nil {
			if err := o.sink.RecordUpdated(ctx, update); err != nil {
				logger.Warn("Entity sink rejected update for %s: %v", item.ExternalID, err)
			}
		}
	case domain.ClassificationDeleted:
		// Removal markers are handled before classification.
		return nil
	}

	return committer.Add(ctx, driven.RecordWithPermissions{
		Record:           *update.Record,
		Permissions:      update.Permissions,
		MergePermissions: update.IsFallback,
	})
}

// resolvePermissions fetches and normalises the item's ACL, applying
// the fallback policy when the authoritative listing is inaccessible.
func (o *ScopeOrchestrator) resolvePermissions(
	ctx context.Context,
	source driven.ProviderSource,
	scope driven.Scope,
	resolver *PermissionResolver,
	item domain.RawItem,
	result *driving.ScopeResult,
) ([]domain.Permission, bool, error) {
	if !source.Capabilities().SupportsPermissions {
		perms, isFallback := resolver.Fallback(item.ExternalID, item.LinkShareRole)
		return perms, isFallback, nil
	}

	grants, err := source.FetchPermissions(ctx, scope, item)
	if err == nil {
		return resolver.Resolve(grants, item.ExternalID, false), false, nil
	}

	decision := o.classifier.Classify(err, OpContext{
		Op:             OpItemPermissions,
		ActingIdentity: resolver.ActingIdentity(),
	})
	switch decision {
	case DecisionFallbackPermission:
		logger.Debug("Permission fallback for %s: %v", item.ExternalID, err)
		perms, isFallback := resolver.Fallback(item.ExternalID, item.LinkShareRole)
		return perms, isFallback, nil
	case DecisionSkipItem:
		// Persisted with no permissions; revisited next sync.
		logger.Debug("Permission fetch skipped for %s: %v", item.ExternalID, err)
		result.SkippedItems++
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("fetch permissions %s: %w", item.ExternalID, err)
	}
}

// retract soft-deletes a record and notifies the sink, bypassing the
// batch committer.
func (o *ScopeOrchestrator) retract(ctx context.Context, instance, externalID string) error {
	if err := o.store.RetractRecord(ctx, instance, externalID); err != nil {
		return fmt.Errorf("retract record %s: %w", externalID, err)
	}
	if o.sink != nil {
		if err := o.sink.RecordDeleted(ctx, instance, externalID); err != nil {
			logger.Warn("Entity sink rejected deletion of %s: %v", externalID, err)
		}
	}
	logger.Debug("Retracted record %s", externalID)
	return nil
}
