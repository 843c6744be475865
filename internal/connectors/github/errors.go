package github

import (
	"errors"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

// WrapError converts go-github errors to domain ProviderErrors so the
// failure classifier can interpret them. Non-API errors pass through.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.ProviderError{
			StatusCode: http.StatusTooManyRequests,
			Reason:     domain.ReasonRateLimited,
			Message:    rateErr.Message,
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &domain.ProviderError{
			StatusCode: http.StatusTooManyRequests,
			Reason:     domain.ReasonRateLimited,
			Message:    abuseErr.Message,
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		return &domain.ProviderError{
			StatusCode: status,
			Reason:     reasonFor(status, ghErr.Message),
			Message:    ghErr.Message,
		}
	}

	return err
}

// reasonFor normalises GitHub's message-based 403 vocabulary onto the
// engine's reason codes.
func reasonFor(status int, message string) string {
	if status != http.StatusForbidden {
		return ""
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "rate limit"):
		return domain.ReasonRateLimited
	case strings.Contains(msg, "access blocked"), strings.Contains(msg, "must be a member"):
		return domain.ReasonMembershipRequired
	case strings.Contains(msg, "access"), strings.Contains(msg, "permission"):
		return domain.ReasonInsufficientPermissions
	default:
		return ""
	}
}
