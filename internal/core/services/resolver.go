package services

import (
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/logger"
)

// PermissionResolver normalises provider-native ACL entries into the
// engine's permission model, and synthesises provisional fallback
// grants when authoritative permission data is inaccessible.
type PermissionResolver struct {
	roles    map[string]domain.Role
	subjects map[string]domain.SubjectKind
	acting   string
}

// NewPermissionResolver creates a resolver with the provider's role and
// subject-kind vocabularies and the acting sync identity.
func NewPermissionResolver(
	roles map[string]domain.Role, subjects map[string]domain.SubjectKind, actingIdentity string,
) *PermissionResolver {
	return &PermissionResolver{
		roles:    roles,
		subjects: subjects,
		acting:   actingIdentity,
	}
}

// Resolve maps raw ACL entries onto normalised permissions for a
// target. The mapping is total: unknown role values default to READ and
// unknown subject kinds to USER, each with a warning, never an error.
// Rejecting would drop otherwise-valid items entirely.
func (r *PermissionResolver) Resolve(
	grants []domain.RawGrant, targetExternalID string, targetIsGroup bool,
) []domain.Permission {
	perms := make([]domain.Permission, 0, len(grants))
	for _, g := range grants {
		role, ok := r.roles[g.Role]
		if !ok {
			logger.Warn("Unknown provider role %q for %s, defaulting to READ", g.Role, targetExternalID)
			role = domain.RoleRead
		}

		kind, ok := r.subjects[g.Kind]
		if !ok {
			logger.Warn("Unknown provider subject kind %q for %s, defaulting to USER", g.Kind, targetExternalID)
			kind = domain.SubjectUser
		}

		perms = append(perms, domain.Permission{
			Subject:          g.Subject,
			Kind:             kind,
			Role:             role,
			TargetExternalID: targetExternalID,
			TargetIsGroup:    targetIsGroup,
		})
	}
	return perms
}

// Fallback synthesises a provisional permission set for a target whose
// authoritative ACL listing is inaccessible: a single grant for the
// acting identity, at READ unless the item carries a discovered
// anyone-with-link role.
//
// The returned set is provisional and must be merged additively into
// existing grants, never used to replace previously known grants.
// Containers never take this path; an inaccessible container ACL is a
// hard error because containers define inherited access for children.
func (r *PermissionResolver) Fallback(
	targetExternalID, linkShareRole string,
) ([]domain.Permission, bool) {
	if r.acting == "" {
		return nil, false
	}

	// READ unless the item exposes an anyone-with-link role, in which
	// case the acting identity holds at least that.
	role := domain.RoleRead
	if linkShareRole != "" {
		if mapped, ok := r.roles[linkShareRole]; ok {
			role = mapped
		}
	}

	return []domain.Permission{{
		Subject:          r.acting,
		Kind:             domain.SubjectUser,
		Role:             role,
		TargetExternalID: targetExternalID,
	}}, true
}

// ActingIdentity returns the configured sync identity.
func (r *PermissionResolver) ActingIdentity() string {
	return r.acting
}
