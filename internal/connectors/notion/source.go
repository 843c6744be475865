// Package notion implements the Notion provider source. The workspace
// is a single sync scope: the search endpoint returns pages and
// databases together, ordered by last-edited descending, which lets the
// engine run watermark-cutoff delta passes. Notion exposes no ACL API,
// so permission sync relies on the engine's fallback policy.
package notion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// ScopeKindWorkspaces tags workspace sync scopes.
const ScopeKindWorkspaces = "workspaces"

// WorkspaceScopeID is the synthetic id of the single workspace scope.
const WorkspaceScopeID = "workspace"

// RequestsPerSecond is Notion's documented integration rate limit.
const RequestsPerSecond = 3

// Ensure Source implements the interface.
var _ driven.ProviderSource = (*Source)(nil)

// Source fetches pages and databases from a Notion workspace.
type Source struct {
	instanceID  string
	client      *notionapi.Client
	pageSize    int
	rateLimiter *rate.Limiter

	mu     sync.Mutex
	acting string
	closed bool
}

// New creates a Notion source with an integration token.
func New(instanceID, token string, pageSize int) *Source {
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Source{
		instanceID:  instanceID,
		client:      notionapi.NewClient(notionapi.Token(token)),
		pageSize:    pageSize,
		rateLimiter: rate.NewLimiter(rate.Limit(RequestsPerSecond), RequestsPerSecond),
	}
}

// Type returns the provider type identifier.
func (s *Source) Type() string {
	return "notion"
}

// Instance returns the connector instance id.
func (s *Source) Instance() string {
	return s.instanceID
}

// Capabilities returns what this source supports.
func (s *Source) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsDeltaFeed:   false,
		WatermarkOrdered:    true,
		SupportsPermissions: false,
		SupportsHierarchy:   true,
	}
}

// Scopes returns the single workspace scope and caches the bot's
// identity for fallback grants.
func (s *Source) Scopes(ctx context.Context) ([]driven.Scope, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	me, err := s.client.User.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("get bot user: %w", WrapError(err))
	}

	acting := me.Name
	if me.Person != nil && me.Person.Email != "" {
		acting = me.Person.Email
	}

	s.mu.Lock()
	s.acting = acting
	s.mu.Unlock()

	return []driven.Scope{
		{ID: WorkspaceScopeID, Kind: ScopeKindWorkspaces, Name: "Workspace"},
	}, nil
}

// FetchPage fetches one search page of pages and databases.
func (s *Source) FetchPage(ctx context.Context, _ driven.Scope, cursor string) (*driven.Page, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCursor, err)
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := &notionapi.SearchRequest{
		Sort: &notionapi.SortObject{
			Direction: notionapi.SortOrderDESC,
			Timestamp: notionapi.TimestampLastEdited,
		},
		PageSize: s.pageSize,
	}
	if !cur.IsEmpty() {
		req.StartCursor = notionapi.Cursor(cur.StartCursor)
	}

	res, err := s.client.Search.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search workspace: %w", WrapError(err))
	}

	page := &driven.Page{}
	for _, obj := range res.Results {
		switch v := obj.(type) {
		case *notionapi.Page:
			page.Items = append(page.Items, pageToRawItem(v))
		case *notionapi.Database:
			page.Items = append(page.Items, databaseToRawItem(v))
		}
	}

	if res.HasMore && res.NextCursor != "" {
		next := &Cursor{Version: CursorVersion, StartCursor: string(res.NextCursor)}
		page.NextCursor = next.Encode()
	}

	return page, nil
}

// FetchPermissions is never called: the workspace reports no permission
// capability and the engine synthesises fallback grants instead.
func (s *Source) FetchPermissions(
	_ context.Context, _ driven.Scope, _ domain.RawItem,
) ([]domain.RawGrant, error) {
	return nil, &domain.ProviderError{
		StatusCode: 404,
		Message:    "notion exposes no permission listing",
	}
}

// RoleMapping returns an empty mapping; Notion has no role vocabulary
// to normalise.
func (s *Source) RoleMapping() map[string]domain.Role {
	return map[string]domain.Role{}
}

// SubjectMapping maps Notion principal types onto normalised kinds.
func (s *Source) SubjectMapping() map[string]domain.SubjectKind {
	return map[string]domain.SubjectKind{
		"person": domain.SubjectUser,
		"bot":    domain.SubjectUser,
	}
}

// ActingIdentity returns the integration's identity, if known.
func (s *Source) ActingIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acting
}

// Close releases resources.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Source) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSourceClosed
	}
	return nil
}

// pageToRawItem converts a Notion page to a raw item.
func pageToRawItem(p *notionapi.Page) domain.RawItem {
	item := domain.RawItem{
		ExternalID:      string(p.ID),
		Revision:        p.LastEditedTime.UTC().Format(time.RFC3339),
		Kind:            "page",
		Name:            pageTitle(p),
		Removed:         p.Archived,
		SourceCreatedAt: p.CreatedTime,
		SourceUpdatedAt: p.LastEditedTime,
	}

	switch p.Parent.Type {
	case notionapi.ParentTypeDatabaseID:
		item.GroupExternalID = string(p.Parent.DatabaseID)
	case notionapi.ParentTypePageID:
		item.ParentExternalID = string(p.Parent.PageID)
	}

	return item
}

// databaseToRawItem converts a Notion database to a raw container item.
func databaseToRawItem(d *notionapi.Database) domain.RawItem {
	item := domain.RawItem{
		ExternalID:      string(d.ID),
		Revision:        d.LastEditedTime.UTC().Format(time.RFC3339),
		Kind:            "database",
		Name:            richTextPlain(d.Title),
		Description:     richTextPlain(d.Description),
		IsContainer:     true,
		Removed:         d.Archived,
		SourceCreatedAt: d.CreatedTime,
		SourceUpdatedAt: d.LastEditedTime,
	}

	if d.Parent.Type == notionapi.ParentTypePageID {
		item.ParentExternalID = string(d.Parent.PageID)
	}

	return item
}

// pageTitle extracts the page title from its properties.
func pageTitle(p *notionapi.Page) string {
	for _, prop := range p.Properties {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			return richTextPlain(title.Title)
		}
	}
	return ""
}

// richTextPlain concatenates the plain text of a rich text run.
func richTextPlain(parts []notionapi.RichText) string {
	var out string
	for _, part := range parts {
		out += part.PlainText
	}
	return out
}
