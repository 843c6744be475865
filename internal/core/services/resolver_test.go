package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

func driveRoles() map[string]domain.Role {
	return map[string]domain.Role{
		"owner":     domain.RoleOwner,
		"writer":    domain.RoleWrite,
		"commenter": domain.RoleComment,
		"reader":    domain.RoleRead,
	}
}

func driveSubjects() map[string]domain.SubjectKind {
	return map[string]domain.SubjectKind{
		"user":   domain.SubjectUser,
		"group":  domain.SubjectGroup,
		"domain": domain.SubjectDomain,
		"anyone": domain.SubjectAnyone,
	}
}

func TestPermissionResolver_Resolve(t *testing.T) {
	resolver := NewPermissionResolver(driveRoles(), driveSubjects(), "sync@example.com")

	grants := []domain.RawGrant{
		{Subject: "alice@example.com", Kind: "user", Role: "owner"},
		{Subject: "team-x", Kind: "group", Role: "writer"},
		{Subject: "example.com", Kind: "domain", Role: "reader"},
	}

	perms := resolver.Resolve(grants, "file-1", false)
	require.Len(t, perms, 3)

	assert.Equal(t, domain.Permission{
		Subject:          "alice@example.com",
		Kind:             domain.SubjectUser,
		Role:             domain.RoleOwner,
		TargetExternalID: "file-1",
	}, perms[0])
	assert.Equal(t, domain.SubjectGroup, perms[1].Kind)
	assert.Equal(t, domain.RoleWrite, perms[1].Role)
	assert.Equal(t, domain.SubjectDomain, perms[2].Kind)
}

func TestPermissionResolver_Resolve_UnknownRole(t *testing.T) {
	resolver := NewPermissionResolver(driveRoles(), driveSubjects(), "")

	// An unknown role value must not reject the grant; it defaults to READ.
	perms := resolver.Resolve([]domain.RawGrant{
		{Subject: "alice@example.com", Kind: "user", Role: "futureRole"},
	}, "file-1", false)

	require.Len(t, perms, 1)
	assert.Equal(t, domain.RoleRead, perms[0].Role)
}

func TestPermissionResolver_Resolve_UnknownSubjectKind(t *testing.T) {
	resolver := NewPermissionResolver(driveRoles(), driveSubjects(), "")

	perms := resolver.Resolve([]domain.RawGrant{
		{Subject: "svc-account", Kind: "serviceAccount", Role: "reader"},
	}, "file-1", false)

	require.Len(t, perms, 1)
	assert.Equal(t, domain.SubjectUser, perms[0].Kind)
}

func TestPermissionResolver_Resolve_GroupTarget(t *testing.T) {
	resolver := NewPermissionResolver(driveRoles(), driveSubjects(), "")

	perms := resolver.Resolve([]domain.RawGrant{
		{Subject: "alice@example.com", Kind: "user", Role: "reader"},
	}, "drive-1", true)

	require.Len(t, perms, 1)
	assert.True(t, perms[0].TargetIsGroup)
	assert.Equal(t, "drive-1", perms[0].TargetExternalID)
}

func TestPermissionResolver_Fallback(t *testing.T) {
	resolver := NewPermissionResolver(driveRoles(), driveSubjects(), "sync@example.com")

	perms, isFallback := resolver.Fallback("file-1", "")
	require.True(t, isFallback)
	require.Len(t, perms, 1)

	assert.Equal(t, "sync@example.com", perms[0].Subject)
	assert.Equal(t, domain.SubjectUser, perms[0].Kind)
	assert.Equal(t, domain.RoleRead, perms[0].Role)
	assert.Equal(t, "file-1", perms[0].TargetExternalID)
}

func TestPermissionResolver_Fallback_LinkShareRole(t *testing.T) {
	resolver := NewPermissionResolver(driveRoles(), driveSubjects(), "sync@example.com")

	// A discovered anyone-with-link role lifts the provisional grant.
	perms, isFallback := resolver.Fallback("file-1", "writer")
	require.True(t, isFallback)
	require.Len(t, perms, 1)
	assert.Equal(t, domain.RoleWrite, perms[0].Role)

	// Unknown link role stays at READ.
	perms, _ = resolver.Fallback("file-1", "mystery")
	require.Len(t, perms, 1)
	assert.Equal(t, domain.RoleRead, perms[0].Role)
}

func TestPermissionResolver_Fallback_NoIdentity(t *testing.T) {
	resolver := NewPermissionResolver(driveRoles(), driveSubjects(), "")

	perms, isFallback := resolver.Fallback("file-1", "")
	assert.False(t, isFallback)
	assert.Nil(t, perms)
}
