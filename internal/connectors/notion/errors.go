package notion

import (
	"errors"

	"github.com/jomei/notionapi"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// Notion error codes normalised onto the engine's reason vocabulary.
var reasonMap = map[notionapi.ErrorCode]string{
	"rate_limited":        domain.ReasonRateLimited,
	"restricted_resource": domain.ReasonInsufficientPermissions,
}

// WrapError converts a Notion API error to a domain ProviderError so
// the failure classifier can interpret it. Non-API errors pass through.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var nerr *notionapi.Error
	if !errors.As(err, &nerr) {
		return err
	}

	return &domain.ProviderError{
		StatusCode: nerr.Status,
		Reason:     reasonMap[nerr.Code],
		Message:    nerr.Message,
	}
}
