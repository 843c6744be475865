package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

func TestFailureClassifier_ContainerList_MembershipRequired(t *testing.T) {
	classifier := NewFailureClassifier()

	// A drive the acting identity is not a member of: clean skip, no warning.
	err := &domain.ProviderError{
		StatusCode: 403,
		Reason:     domain.ReasonMembershipRequired,
		Message:    "user is not a member of the shared drive",
	}

	decision := classifier.Classify(err, OpContext{Op: OpContainerList})
	assert.Equal(t, DecisionSkipScope, decision)
}

func TestFailureClassifier_ContainerList_OtherForbidden(t *testing.T) {
	classifier := NewFailureClassifier()

	// Forbidden without the membership reason: still skipped, but loudly,
	// since the container may need re-auth.
	err := &domain.ProviderError{StatusCode: 403, Message: "access denied"}

	decision := classifier.Classify(err, OpContext{Op: OpContainerList})
	assert.Equal(t, DecisionSkipScopeWarn, decision)
}

func TestFailureClassifier_ContainerList_UnexpectedError(t *testing.T) {
	classifier := NewFailureClassifier()

	decision := classifier.Classify(errors.New("connection reset"), OpContext{Op: OpContainerList})
	assert.Equal(t, DecisionSkipScopeWarn, decision)
}

func TestFailureClassifier_ItemPermissions_Fallback(t *testing.T) {
	classifier := NewFailureClassifier()

	err := &domain.ProviderError{
		StatusCode: 403,
		Reason:     domain.ReasonInsufficientPermissions,
	}

	decision := classifier.Classify(err, OpContext{
		Op:             OpItemPermissions,
		ActingIdentity: "alice@example.com",
	})
	assert.Equal(t, DecisionFallbackPermission, decision)
}

func TestFailureClassifier_ItemPermissions_NoIdentity(t *testing.T) {
	classifier := NewFailureClassifier()

	// Without a known acting identity there is nothing to grant to.
	err := &domain.ProviderError{
		StatusCode: 403,
		Reason:     domain.ReasonInsufficientPermissions,
	}

	decision := classifier.Classify(err, OpContext{Op: OpItemPermissions})
	assert.Equal(t, DecisionSkipItem, decision)
}

func TestFailureClassifier_ItemPermissions_ForbiddenNoReason(t *testing.T) {
	classifier := NewFailureClassifier()

	err := &domain.ProviderError{StatusCode: 403}

	decision := classifier.Classify(err, OpContext{
		Op:             OpItemPermissions,
		ActingIdentity: "alice@example.com",
	})
	assert.Equal(t, DecisionSkipItem, decision)
}

func TestFailureClassifier_ItemPermissions_OtherError(t *testing.T) {
	classifier := NewFailureClassifier()

	decision := classifier.Classify(errors.New("timeout"), OpContext{Op: OpItemPermissions})
	assert.Equal(t, DecisionSkipItem, decision)
}

func TestFailureClassifier_ItemProcess(t *testing.T) {
	classifier := NewFailureClassifier()

	decision := classifier.Classify(errors.New("malformed payload"), OpContext{Op: OpItemProcess})
	assert.Equal(t, DecisionSkipItem, decision)
}

func TestFailureClassifier_StoreFailures(t *testing.T) {
	classifier := NewFailureClassifier()

	// Checkpoint and flush failures must never be skipped over: advancing
	// a checkpoint past an unflushed batch silently loses data.
	decision := classifier.Classify(errors.New("disk full"), OpContext{Op: OpCheckpoint})
	assert.Equal(t, DecisionAbortScope, decision)

	decision = classifier.Classify(errors.New("disk full"), OpContext{Op: OpFlush})
	assert.Equal(t, DecisionAbortScope, decision)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "skip-item", DecisionSkipItem.String())
	assert.Equal(t, "skip-scope", DecisionSkipScope.String())
	assert.Equal(t, "skip-scope-warn", DecisionSkipScopeWarn.String())
	assert.Equal(t, "fallback-permission", DecisionFallbackPermission.String())
	assert.Equal(t, "abort-scope", DecisionAbortScope.String())
}
