package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceClosed indicates the provider source has been closed.
	ErrSourceClosed = errors.New("provider source closed")

	// ErrSyncInProgress indicates a sync is already running for an instance.
	ErrSyncInProgress = errors.New("sync in progress")

	// Authentication errors.

	// ErrAuthRequired indicates the provider requires authentication but
	// none is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the credentials are invalid or expired.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// Machine-readable reason codes carried by ProviderError. Connectors map
// their native reason vocabulary onto these; the failure classifier only
// ever inspects this normalised set.
const (
	// ReasonMembershipRequired indicates a container listing was refused
	// because the acting identity is not a member of the container.
	ReasonMembershipRequired = "membershipRequired"

	// ReasonInsufficientPermissions indicates an item's authoritative
	// permission listing was refused although the item itself is readable.
	ReasonInsufficientPermissions = "insufficientPermissions"

	// ReasonRateLimited indicates the provider throttled the request.
	ReasonRateLimited = "rateLimited"
)

// ProviderError is a provider failure surfaced with an HTTP-like status
// and an optional machine-readable reason, the shape the failure
// classifier interprets. Connectors construct it at their boundary so the
// engine never depends on provider SDK error types.
type ProviderError struct {
	// StatusCode is the HTTP-like status (403, 404, 429, ...).
	StatusCode int

	// Reason is a normalised reason code, or empty when the provider
	// gave none.
	Reason string

	// Message is the human-readable provider message.
	Message string
}

func (e *ProviderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// IsForbidden reports whether err is a provider access-forbidden error.
func IsForbidden(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.StatusCode == 403
}

// IsProviderNotFound reports whether err is a provider not-found error.
func IsProviderNotFound(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.StatusCode == 404
}

// ProviderReason extracts the normalised reason code from err, or ""
// if err is not a ProviderError or carries no reason.
func ProviderReason(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Reason
	}
	return ""
}
