package github

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

func ghResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Request:    &http.Request{},
	}
}

func TestWrapError_Nil(t *testing.T) {
	assert.NoError(t, WrapError(nil))
}

func TestWrapError_PassesThroughNonAPIErrors(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, boom, WrapError(boom))
}

func TestWrapError_RateLimitError(t *testing.T) {
	err := WrapError(&gh.RateLimitError{
		Rate:     gh.Rate{Remaining: 0, Reset: gh.Timestamp{Time: time.Now()}},
		Response: ghResponse(http.StatusForbidden),
		Message:  "API rate limit exceeded",
	})

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, domain.ReasonRateLimited, perr.Reason)
}

func TestWrapError_AbuseRateLimitError(t *testing.T) {
	retry := time.Minute
	err := WrapError(&gh.AbuseRateLimitError{
		Response:   ghResponse(http.StatusForbidden),
		Message:    "You have triggered an abuse detection mechanism",
		RetryAfter: &retry,
	})

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, domain.ReasonRateLimited, perr.Reason)
}

func TestWrapError_ErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		message    string
		wantReason string
	}{
		{
			name:       "membership required",
			status:     http.StatusForbidden,
			message:    "You must be a member of the organization to see this content",
			wantReason: domain.ReasonMembershipRequired,
		},
		{
			name:       "access blocked",
			status:     http.StatusForbidden,
			message:    "Repository access blocked",
			wantReason: domain.ReasonMembershipRequired,
		},
		{
			name:       "insufficient permissions",
			status:     http.StatusForbidden,
			message:    "You do not have permission to view collaborators",
			wantReason: domain.ReasonInsufficientPermissions,
		},
		{
			name:       "secondary rate limit",
			status:     http.StatusForbidden,
			message:    "You have exceeded a secondary rate limit",
			wantReason: domain.ReasonRateLimited,
		},
		{
			name:       "plain forbidden",
			status:     http.StatusForbidden,
			message:    "Forbidden",
			wantReason: "",
		},
		{
			name:       "not found carries no reason",
			status:     http.StatusNotFound,
			message:    "Not Found",
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapError(&gh.ErrorResponse{
				Response: ghResponse(tt.status),
				Message:  tt.message,
			})

			var perr *domain.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.wantReason, perr.Reason)
			assert.Equal(t, tt.message, perr.Message)
		})
	}
}

func TestWrapError_WrappedErrorResponse(t *testing.T) {
	inner := &gh.ErrorResponse{
		Response: ghResponse(http.StatusForbidden),
		Message:  "Must be a member",
	}
	err := WrapError(fmt.Errorf("listing collaborators: %w", inner))

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ReasonMembershipRequired, perr.Reason)
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := splitRepo("octocat/hello-world")
	require.NoError(t, err)
	assert.Equal(t, "octocat", owner)
	assert.Equal(t, "hello-world", name)

	for _, bad := range []string{"", "octocat", "/hello", "octocat/"} {
		_, _, err := splitRepo(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "input %q", bad)
	}
}

func TestIssueToRawItem(t *testing.T) {
	updated := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	issue := &gh.Issue{
		Number:    gh.Ptr(42),
		Title:     gh.Ptr("Fix pagination"),
		UpdatedAt: &gh.Timestamp{Time: updated},
		CreatedAt: &gh.Timestamp{Time: updated.Add(-time.Hour)},
	}

	item := issueToRawItem(issue, "octocat/hello-world")
	assert.Equal(t, "octocat/hello-world#42", item.ExternalID)
	assert.Equal(t, "issue", item.Kind)
	assert.Equal(t, "Fix pagination", item.Name)
	assert.Equal(t, "octocat/hello-world", item.GroupExternalID)
	assert.Equal(t, updated.Format(time.RFC3339), item.Revision)
	assert.True(t, item.SourceUpdatedAt.Equal(updated))
}

func TestIssueToRawItem_PullRequest(t *testing.T) {
	issue := &gh.Issue{
		Number:           gh.Ptr(7),
		Title:            gh.Ptr("Add feature"),
		UpdatedAt:        &gh.Timestamp{Time: time.Now()},
		PullRequestLinks: &gh.PullRequestLinks{URL: gh.Ptr("https://api.github.com/repos/o/r/pulls/7")},
	}

	item := issueToRawItem(issue, "o/r")
	assert.Equal(t, "pull", item.Kind)
}

func TestCollaboratorRole(t *testing.T) {
	assert.Equal(t, "admin", collaboratorRole(&gh.User{RoleName: gh.Ptr("admin")}))

	assert.Equal(t, "maintain", collaboratorRole(&gh.User{
		Permissions: map[string]bool{"maintain": true, "push": true, "pull": true},
	}))
	assert.Equal(t, "push", collaboratorRole(&gh.User{
		Permissions: map[string]bool{"push": true, "pull": true},
	}))
	assert.Equal(t, "pull", collaboratorRole(&gh.User{}))
}
