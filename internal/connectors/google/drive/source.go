// Package drive implements the Google Drive provider source. Each drive
// (the user's own plus every shared drive) is an independent sync scope.
// Snapshots walk files.list; later passes replay the changes.list feed
// from a start token captured before the snapshot began.
package drive

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/connectors/google"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// ScopeKindDrives tags Drive sync scopes.
const ScopeKindDrives = "drives"

// Ensure Source implements the interface.
var _ driven.ProviderSource = (*Source)(nil)

// Source fetches files and permissions from Google Drive.
type Source struct {
	instanceID  string
	config      *Config
	svc         *gdrive.Service
	rateLimiter *google.RateLimiter

	mu     sync.Mutex
	acting string
	rootID string
	closed bool
}

// New creates a Drive source for the given connector instance.
func New(ctx context.Context, instanceID string, ts oauth2.TokenSource, cfg *Config) (*Source, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	svc, err := google.NewDriveService(ctx, ts)
	if err != nil {
		return nil, err
	}

	return &Source{
		instanceID:  instanceID,
		config:      cfg,
		svc:         svc,
		rateLimiter: google.NewRateLimiter(google.DefaultDriveRateLimit),
	}, nil
}

// Type returns the provider type identifier.
func (s *Source) Type() string {
	return "drive"
}

// Instance returns the connector instance id.
func (s *Source) Instance() string {
	return s.instanceID
}

// Capabilities returns what this source supports.
func (s *Source) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsDeltaFeed:   true,
		WatermarkOrdered:    false,
		SupportsPermissions: true,
		SupportsHierarchy:   true,
	}
}

// Scopes enumerates the user's drive and every accessible shared drive.
func (s *Source) Scopes(ctx context.Context) ([]driven.Scope, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var scopes []driven.Scope
	if s.config.IncludeMyDrive {
		scopes = append(scopes, driven.Scope{ID: MyDriveID, Kind: ScopeKindDrives, Name: "My Drive"})
	}

	pageToken := ""
	for {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Drives.List().PageSize(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list shared drives: %w", google.WrapError(err))
		}

		for _, d := range list.Drives {
			scopes = append(scopes, driven.Scope{ID: d.Id, Kind: ScopeKindDrives, Name: d.Name})
		}

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	// Cache the acting identity for fallback grants. Failure here is
	// not fatal; the fallback path just stays disabled.
	if email, err := google.ActingEmail(ctx, s.svc); err == nil {
		s.mu.Lock()
		s.acting = email
		s.mu.Unlock()
	}

	return scopes, nil
}

// FetchPage fetches one page for a drive scope.
func (s *Source) FetchPage(ctx context.Context, scope driven.Scope, cursor string) (*driven.Page, error) {
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

	// Top-level items in My Drive name the hidden root folder as their
	// parent; resolve it once so they re-parent onto the scope itself.
	// Shared drive roots already share the drive id.
	if scope.ID == MyDriveID {
		if err := s.resolveRoot(ctx); err != nil {
			return nil, err
		}
	}

	switch cur.Phase {
	case PhaseFull:
		return s.fetchFullPage(ctx, scope, cur)
	case PhaseChanges:
		return s.fetchChangesPage(ctx, scope, cur)
	default:
		return nil, fmt.Errorf("%w: unknown phase %q", domain.ErrInvalidCursor, cur.Phase)
	}
}

// resolveRoot caches the My Drive root folder id.
func (s *Source) resolveRoot(ctx context.Context) error {
	s.mu.Lock()
	resolved := s.rootID != ""
	s.mu.Unlock()
	if resolved {
		return nil
	}

	root, err := s.svc.Files.Get("root").Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("resolve root folder: %w", google.WrapError(err))
	}

	s.mu.Lock()
	s.rootID = root.Id
	s.mu.Unlock()
	return nil
}

// fetchFullPage walks one files.list page of the snapshot listing.
func (s *Source) fetchFullPage(ctx context.Context, scope driven.Scope, cur *Cursor) (*driven.Page, error) {
	page := &driven.Page{}

	// The changes start token is captured before the first page so the
	// first delta pass covers everything mutated during the snapshot.
	if cur.StartToken == "" {
		token, err := s.startPageToken(ctx, scope)
		if err != nil {
			return nil, err
		}
		cur.StartToken = token

		// The drive itself roots the hierarchy for this scope.
		page.Items = append(page.Items, domain.RawItem{
			ExternalID:  scope.ID,
			Kind:        "drive",
			Name:        scope.Name,
			IsContainer: true,
		})
	}

	call := s.svc.Files.List().
		Q("trashed = false").
		PageSize(s.config.PageSize).
		Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
		Context(ctx)
	if scope.ID != MyDriveID {
		call = call.Corpora("drive").
			DriveId(scope.ID).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true)
	}
	if cur.PageToken != "" {
		call = call.PageToken(cur.PageToken)
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", google.WrapError(err))
	}

	for _, f := range list.Files {
		page.Items = append(page.Items, s.fileToRawItem(f, scope.ID))
	}

	if list.NextPageToken != "" {
		next := &Cursor{
			Version:    CursorVersion,
			Phase:      PhaseFull,
			PageToken:  list.NextPageToken,
			StartToken: cur.StartToken,
		}
		page.NextCursor = next.Encode()
		return page, nil
	}

	// Snapshot complete: the next pass replays the change feed from the
	// token captured up front.
	delta := &Cursor{
		Version:   CursorVersion,
		Phase:     PhaseChanges,
		PageToken: cur.StartToken,
	}
	page.DeltaCursor = delta.Encode()
	return page, nil
}

// fetchChangesPage drains one changes.list page of the delta feed.
func (s *Source) fetchChangesPage(ctx context.Context, scope driven.Scope, cur *Cursor) (*driven.Page, error) {
	call := s.svc.Changes.List(cur.PageToken).
		PageSize(s.config.PageSize).
		IncludeRemoved(true).
		Fields(googleapi.Field(
			"nextPageToken, newStartPageToken, changes(fileId, removed, file(" + fileFields + "))")).
		Context(ctx)
	if scope.ID != MyDriveID {
		call = call.DriveId(scope.ID).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true)
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", google.WrapError(err))
	}

	page := &driven.Page{}
	for _, ch := range list.Changes {
		if ch.Removed || ch.File == nil || ch.File.Trashed {
			page.Items = append(page.Items, domain.RawItem{
				ExternalID: ch.FileId,
				Removed:    true,
			})
			continue
		}
		page.Items = append(page.Items, s.fileToRawItem(ch.File, scope.ID))
	}

	if list.NextPageToken != "" {
		next := &Cursor{
			Version:   CursorVersion,
			Phase:     PhaseChanges,
			PageToken: list.NextPageToken,
		}
		page.NextCursor = next.Encode()
		return page, nil
	}

	delta := &Cursor{
		Version:   CursorVersion,
		Phase:     PhaseChanges,
		PageToken: list.NewStartPageToken,
	}
	page.DeltaCursor = delta.Encode()
	return page, nil
}

// FetchPermissions lists the authoritative ACL entries for a file.
func (s *Source) FetchPermissions(
	ctx context.Context, _ driven.Scope, item domain.RawItem,
) ([]domain.RawGrant, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var grants []domain.RawGrant

	pageToken := ""
	for {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Permissions.List(item.ExternalID).
			SupportsAllDrives(true).
			PageSize(100).
			Fields(googleapi.Field("nextPageToken, permissions(id, type, role, emailAddress, domain, allowFileDiscovery)")).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, google.WrapError(err)
		}

		for _, p := range list.Permissions {
			grants = append(grants, permissionToRawGrant(p))
		}

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	return grants, nil
}

// RoleMapping maps Drive roles onto normalised roles.
func (s *Source) RoleMapping() map[string]domain.Role {
	return map[string]domain.Role{
		"owner":         domain.RoleOwner,
		"organizer":     domain.RoleOwner,
		"fileOrganizer": domain.RoleWrite,
		"writer":        domain.RoleWrite,
		"commenter":     domain.RoleComment,
		"reader":        domain.RoleRead,
	}
}

// SubjectMapping maps Drive grantee types onto normalised subject kinds.
func (s *Source) SubjectMapping() map[string]domain.SubjectKind {
	return map[string]domain.SubjectKind{
		"user":           domain.SubjectUser,
		"group":          domain.SubjectGroup,
		"domain":         domain.SubjectDomain,
		"anyone":         domain.SubjectAnyone,
		"anyoneWithLink": domain.SubjectAnyoneWithLink,
	}
}

// ActingIdentity returns the authenticated user's email, if known.
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

// startPageToken fetches the changes feed position for a drive.
func (s *Source) startPageToken(ctx context.Context, scope driven.Scope) (string, error) {
	call := s.svc.Changes.GetStartPageToken().Context(ctx)
	if scope.ID != MyDriveID {
		call = call.DriveId(scope.ID).SupportsAllDrives(true)
	}
	token, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("get start page token: %w", google.WrapError(err))
	}
	return token.StartPageToken, nil
}

// fileToRawItem converts a Drive file to a raw item.
func (s *Source) fileToRawItem(f *gdrive.File, driveID string) domain.RawItem {
	item := domain.RawItem{
		ExternalID:      f.Id,
		Kind:            "file",
		Name:            f.Name,
		GroupExternalID: driveID,
	}

	if f.MimeType == MimeTypeFolder {
		item.Kind = "folder"
		item.IsContainer = true
	}

	if len(f.Parents) > 0 {
		item.ParentExternalID = f.Parents[0]
		// Shared drive roots use the drive id itself; My Drive's hidden
		// root folder is rewritten onto the synthetic scope id.
		s.mu.Lock()
		if s.rootID != "" && item.ParentExternalID == s.rootID {
			item.ParentExternalID = driveID
		}
		s.mu.Unlock()
	}

	// A monotonic content version is preferred over the modified time.
	if f.Version > 0 {
		item.Revision = strconv.FormatInt(f.Version, 10)
	} else {
		item.Revision = f.ModifiedTime
	}

	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		item.SourceCreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		item.SourceUpdatedAt = t
	}

	item.LinkShareRole = linkShareRole(f.Permissions)

	return item
}

// linkShareRole picks the link-sharing role off a file's inline ACL,
// if the file carries one.
func linkShareRole(perms []*gdrive.Permission) string {
	for _, p := range perms {
		if p.Type == "anyone" && !p.AllowFileDiscovery {
			return p.Role
		}
	}
	return ""
}

// permissionToRawGrant converts a Drive permission to a raw grant.
// Drive encodes link sharing as an "anyone" grant with file discovery
// switched off; that variant maps to its own grantee kind.
func permissionToRawGrant(p *gdrive.Permission) domain.RawGrant {
	subject := p.EmailAddress
	if p.Type == "domain" {
		subject = p.Domain
	}
	kind := p.Type
	if p.Type == "anyone" && !p.AllowFileDiscovery {
		kind = "anyoneWithLink"
	}
	return domain.RawGrant{
		Subject: subject,
		Kind:    kind,
		Role:    p.Role,
	}
}
