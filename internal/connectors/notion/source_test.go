package notion

import (
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

func TestWrapError_Nil(t *testing.T) {
	assert.NoError(t, WrapError(nil))
}

func TestWrapError_PassesThroughNonAPIErrors(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, boom, WrapError(boom))
}

func TestWrapError_RateLimited(t *testing.T) {
	err := WrapError(&notionapi.Error{
		Status:  429,
		Code:    "rate_limited",
		Message: "Rate limited",
	})

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 429, perr.StatusCode)
	assert.Equal(t, domain.ReasonRateLimited, perr.Reason)
}

func TestWrapError_RestrictedResource(t *testing.T) {
	err := WrapError(&notionapi.Error{
		Status:  403,
		Code:    "restricted_resource",
		Message: "The bot lacks access",
	})

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 403, perr.StatusCode)
	assert.Equal(t, domain.ReasonInsufficientPermissions, perr.Reason)
}

func TestWrapError_UnknownCodeHasNoReason(t *testing.T) {
	err := WrapError(&notionapi.Error{
		Status:  404,
		Code:    "object_not_found",
		Message: "Could not find page",
	})

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 404, perr.StatusCode)
	assert.Empty(t, perr.Reason)
}

func TestPageToRawItem(t *testing.T) {
	edited := time.Date(2026, 4, 10, 14, 0, 0, 0, time.UTC)
	page := &notionapi.Page{
		ID:             "page-1",
		CreatedTime:    edited.Add(-24 * time.Hour),
		LastEditedTime: edited,
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: "db-1",
		},
		Properties: notionapi.Properties{
			"title": &notionapi.TitleProperty{
				Title: []notionapi.RichText{
					{PlainText: "Meeting "},
					{PlainText: "notes"},
				},
			},
		},
	}

	item := pageToRawItem(page)
	assert.Equal(t, "page-1", item.ExternalID)
	assert.Equal(t, "page", item.Kind)
	assert.Equal(t, "Meeting notes", item.Name)
	assert.Equal(t, "db-1", item.GroupExternalID)
	assert.Empty(t, item.ParentExternalID)
	assert.Equal(t, edited.Format(time.RFC3339), item.Revision)
	assert.False(t, item.Removed)
	assert.True(t, item.SourceUpdatedAt.Equal(edited))
}

func TestPageToRawItem_PageParent(t *testing.T) {
	page := &notionapi.Page{
		ID:             "page-2",
		LastEditedTime: time.Now(),
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: "page-1",
		},
	}

	item := pageToRawItem(page)
	assert.Equal(t, "page-1", item.ParentExternalID)
	assert.Empty(t, item.GroupExternalID)
	assert.Empty(t, item.Name)
}

func TestPageToRawItem_Archived(t *testing.T) {
	page := &notionapi.Page{
		ID:             "page-3",
		LastEditedTime: time.Now(),
		Archived:       true,
	}

	assert.True(t, pageToRawItem(page).Removed)
}

func TestDatabaseToRawItem(t *testing.T) {
	edited := time.Date(2026, 4, 11, 9, 0, 0, 0, time.UTC)
	db := &notionapi.Database{
		ID:             "db-1",
		CreatedTime:    edited.Add(-48 * time.Hour),
		LastEditedTime: edited,
		Title:          []notionapi.RichText{{PlainText: "Tasks"}},
		Description:    []notionapi.RichText{{PlainText: "Team task tracker"}},
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: "page-1",
		},
	}

	item := databaseToRawItem(db)
	assert.Equal(t, "db-1", item.ExternalID)
	assert.Equal(t, "database", item.Kind)
	assert.Equal(t, "Tasks", item.Name)
	assert.Equal(t, "Team task tracker", item.Description)
	assert.True(t, item.IsContainer)
	assert.Equal(t, "page-1", item.ParentExternalID)
}

func TestRichTextPlain_Empty(t *testing.T) {
	assert.Empty(t, richTextPlain(nil))
}
