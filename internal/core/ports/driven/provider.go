package driven

import (
	"context"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// Scope is an independently sync-able unit: one user's content, one
// drive, one knowledge base. Scopes are enumerated by the provider
// source and run in isolation by the orchestrator.
type Scope struct {
	// ID is the provider-native scope identity (user id, drive id, ...).
	ID string

	// Kind tags the scope ("users", "drives", "databases", ...). It
	// participates in the sync point key.
	Kind string

	// Name is the display name for logging.
	Name string
}

// Page is one page of raw items from a provider listing or change feed.
type Page struct {
	// Items are the decoded raw items, in provider order. For
	// watermark-ordered sources the order is last-modified descending,
	// a hard requirement for delta correctness.
	Items []domain.RawItem

	// NextCursor continues the sequence; empty means exhausted.
	NextCursor string

	// DeltaCursor, when set on the final page, is the cursor the next
	// incremental pass should start from (e.g. a change-feed start token
	// captured at the beginning of a full listing).
	DeltaCursor string
}

// SourceCapabilities describes what a provider source supports.
type SourceCapabilities struct {
	// SupportsDeltaFeed indicates the provider maintains a change feed
	// keyed by a monotonic token.
	SupportsDeltaFeed bool

	// WatermarkOrdered indicates listings are sorted by last-modified
	// descending, enabling watermark-cutoff delta pagination.
	WatermarkOrdered bool

	// SupportsPermissions indicates the source can list authoritative
	// per-item permissions. When false, the engine falls back to a
	// provisional grant for the acting identity.
	SupportsPermissions bool

	// SupportsHierarchy indicates items declare parent containers.
	SupportsHierarchy bool
}

// ProviderSource is the per-connector boundary the engine drives. Each
// provider implements it by decoding its native payloads into domain
// types; the engine never sees provider JSON or SDK error types.
type ProviderSource interface {
	// Type returns the provider type identifier ("drive", "github", ...).
	Type() string

	// Instance returns the connector instance id.
	Instance() string

	// Capabilities returns what this source supports.
	Capabilities() SourceCapabilities

	// Scopes enumerates the sync scopes for this instance. A failure
	// here is engine-fatal for the run.
	Scopes(ctx context.Context) ([]Scope, error)

	// FetchPage fetches one page for a scope. An empty cursor starts a
	// full (snapshot) pass; a checkpoint cursor resumes or runs a delta
	// pass. The cursor payload is owned by the provider except for
	// watermark cursors, which the engine encodes.
	FetchPage(ctx context.Context, scope Scope, cursor string) (*Page, error)

	// FetchPermissions lists the authoritative ACL entries for an item.
	// Only called when SupportsPermissions is true. Errors surface as
	// *domain.ProviderError for the failure classifier.
	FetchPermissions(ctx context.Context, scope Scope, item domain.RawItem) ([]domain.RawGrant, error)

	// RoleMapping returns the provider-native role vocabulary mapped to
	// normalised roles. The permission resolver treats the mapping as
	// total: unmapped values default to READ and are logged.
	RoleMapping() map[string]domain.Role

	// SubjectMapping returns the provider-native subject-kind vocabulary
	// mapped to normalised subject kinds.
	SubjectMapping() map[string]domain.SubjectKind

	// ActingIdentity returns the identity the sync runs as (an email or
	// login), used for fallback permission grants. Empty when unknown.
	ActingIdentity() string

	// Close releases resources.
	Close() error
}
