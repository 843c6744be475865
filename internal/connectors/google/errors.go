package google

import (
	"errors"

	"google.golang.org/api/googleapi"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// Drive reason strings normalised onto the engine's reason vocabulary.
// Anything unmapped passes through verbatim.
var reasonMap = map[string]string{
	"teamDriveMembershipRequired": domain.ReasonMembershipRequired,
	"membershipRequired":          domain.ReasonMembershipRequired,
	"insufficientFilePermissions": domain.ReasonInsufficientPermissions,
	"insufficientPermissions":     domain.ReasonInsufficientPermissions,
	"rateLimitExceeded":           domain.ReasonRateLimited,
	"userRateLimitExceeded":       domain.ReasonRateLimited,
}

// WrapError converts a Google API error to a domain ProviderError so the
// failure classifier can interpret it. Non-API errors pass through.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	reason := ""
	if len(gerr.Errors) > 0 {
		reason = gerr.Errors[0].Reason
		if mapped, ok := reasonMap[reason]; ok {
			reason = mapped
		}
	}

	return &domain.ProviderError{
		StatusCode: gerr.Code,
		Reason:     reason,
		Message:    gerr.Message,
	}
}
