// Package github implements the GitHub provider source. Each accessible
// repository is an independent sync scope; issues and pull requests are
// listed by last-update descending, which lets the engine run
// watermark-cutoff delta passes without a provider change feed.
package github

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// ScopeKindRepos tags repository sync scopes.
const ScopeKindRepos = "repos"

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Ensure Source implements the interface.
var _ driven.ProviderSource = (*Source)(nil)

// Source fetches issues and pull requests from GitHub repositories.
type Source struct {
	instanceID  string
	config      *Config
	gh          *gh.Client
	rateLimiter *RateLimiter

	mu     sync.Mutex
	acting string
	closed bool
}

// New creates a GitHub source with a static access token. Works for
// both PAT and OAuth access tokens.
func New(ctx context.Context, instanceID, token string, cfg *Config) *Source {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	return &Source{
		instanceID:  instanceID,
		config:      cfg,
		gh:          gh.NewClient(tc),
		rateLimiter: NewRateLimiter(),
	}
}

// Type returns the provider type identifier.
func (s *Source) Type() string {
	return "github"
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
		SupportsPermissions: true,
		SupportsHierarchy:   true,
	}
}

// Scopes enumerates every repository the authenticated user can access:
// owned repos, collaborator repos, and organisation member repos.
func (s *Source) Scopes(ctx context.Context) ([]driven.Scope, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "all",
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var scopes []driven.Scope
	for {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		repos, resp, err := s.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("list repos: %w", WrapError(err))
		}
		s.updateRateLimit(resp)

		for _, repo := range repos {
			if repo.GetArchived() && !s.config.IncludeArchived {
				continue
			}
			if repo.GetFork() && !s.config.IncludeForks {
				continue
			}
			scopes = append(scopes, driven.Scope{
				ID:   repo.GetFullName(),
				Kind: ScopeKindRepos,
				Name: repo.GetFullName(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	// Cache the acting login for fallback grants.
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	if user, resp, err := s.gh.Users.Get(ctx, ""); err == nil {
		s.updateRateLimit(resp)
		s.mu.Lock()
		s.acting = user.GetLogin()
		s.mu.Unlock()
	}

	return scopes, nil
}

// FetchPage fetches one page of issues and pull requests for a repo.
func (s *Source) FetchPage(ctx context.Context, scope driven.Scope, cursor string) (*driven.Page, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	owner, name, err := splitRepo(scope.ID)
	if err != nil {
		return nil, err
	}

	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCursor, err)
	}

	listPage := cur.Page
	if cur.IsEmpty() {
		listPage = 1
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: s.config.PageSize,
			Page:    listPage,
		},
	}

	issues, resp, err := s.gh.Issues.ListByRepo(ctx, owner, name, opts)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", WrapError(err))
	}
	s.updateRateLimit(resp)

	page := &driven.Page{}

	// The repository roots the hierarchy for this scope.
	if cur.IsEmpty() {
		page.Items = append(page.Items, domain.RawItem{
			ExternalID:  scope.ID,
			Kind:        "repo",
			Name:        scope.ID,
			IsContainer: true,
		})
	}

	for _, issue := range issues {
		page.Items = append(page.Items, issueToRawItem(issue, scope.ID))
	}

	if resp.NextPage != 0 {
		next := &Cursor{Version: CursorVersion, Page: resp.NextPage}
		page.NextCursor = next.Encode()
	}

	return page, nil
}

// FetchPermissions lists repository collaborators. GitHub access is
// repository-scoped, so every item in a repo shares the same grant set.
func (s *Source) FetchPermissions(
	ctx context.Context, scope driven.Scope, _ domain.RawItem,
) ([]domain.RawGrant, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	owner, name, err := splitRepo(scope.ID)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListCollaboratorsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var grants []domain.RawGrant
	for {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		users, resp, err := s.gh.Repositories.ListCollaborators(ctx, owner, name, opts)
		if err != nil {
			return nil, WrapError(err)
		}
		s.updateRateLimit(resp)

		for _, u := range users {
			grants = append(grants, domain.RawGrant{
				Subject: u.GetLogin(),
				Kind:    "user",
				Role:    collaboratorRole(u),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return grants, nil
}

// RoleMapping maps GitHub repository roles onto normalised roles.
func (s *Source) RoleMapping() map[string]domain.Role {
	return map[string]domain.Role{
		"admin":    domain.RoleOwner,
		"maintain": domain.RoleWrite,
		"write":    domain.RoleWrite,
		"push":     domain.RoleWrite,
		"triage":   domain.RoleComment,
		"read":     domain.RoleRead,
		"pull":     domain.RoleRead,
	}
}

// SubjectMapping maps GitHub grantee types onto normalised subject kinds.
func (s *Source) SubjectMapping() map[string]domain.SubjectKind {
	return map[string]domain.SubjectKind{
		"user": domain.SubjectUser,
		"team": domain.SubjectGroup,
	}
}

// ActingIdentity returns the authenticated login, if known.
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

func (s *Source) updateRateLimit(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	s.rateLimiter.UpdateFromResponse(resp.Response)
}

// splitRepo splits an "owner/name" scope id.
func splitRepo(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("%w: malformed repo scope %q", domain.ErrInvalidInput, fullName)
	}
	return owner, name, nil
}

// issueToRawItem converts an issue or pull request to a raw item.
func issueToRawItem(issue *gh.Issue, repoFullName string) domain.RawItem {
	kind := "issue"
	if issue.IsPullRequest() {
		kind = "pull"
	}

	return domain.RawItem{
		ExternalID:      fmt.Sprintf("%s#%d", repoFullName, issue.GetNumber()),
		Revision:        issue.GetUpdatedAt().Format(time.RFC3339),
		Kind:            kind,
		Name:            issue.GetTitle(),
		GroupExternalID: repoFullName,
		SourceCreatedAt: issue.GetCreatedAt().Time,
		SourceUpdatedAt: issue.GetUpdatedAt().Time,
	}
}

// collaboratorRole extracts the effective role for a collaborator.
func collaboratorRole(u *gh.User) string {
	if role := u.GetRoleName(); role != "" {
		return role
	}

	// Older API responses only carry the permissions map.
	perms := u.GetPermissions()
	switch {
	case perms["admin"]:
		return "admin"
	case perms["maintain"]:
		return "maintain"
	case perms["push"]:
		return "push"
	case perms["triage"]:
		return "triage"
	default:
		return "pull"
	}
}
