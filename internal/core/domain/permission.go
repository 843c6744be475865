package domain

// Role is a normalised access role, ordered from weakest to strongest.
type Role int

const (
	// RoleRead grants read-only access. It is also the default for
	// unknown provider roles, which are never rejected.
	RoleRead Role = iota + 1

	// RoleComment grants read and comment access.
	RoleComment

	// RoleWrite grants edit access.
	RoleWrite

	// RoleOwner grants full ownership.
	RoleOwner
)

// String returns the canonical name for the role.
func (r Role) String() string {
	switch r {
	case RoleRead:
		return "READ"
	case RoleComment:
		return "COMMENT"
	case RoleWrite:
		return "WRITE"
	case RoleOwner:
		return "OWNER"
	default:
		return "UNKNOWN"
	}
}

// Stronger reports whether r grants at least as much access as other.
func (r Role) Stronger(other Role) bool {
	return r >= other
}

// SubjectKind identifies what kind of principal a grant applies to.
type SubjectKind string

const (
	// SubjectUser is an individual user, identified by email or login.
	SubjectUser SubjectKind = "USER"

	// SubjectGroup is a provider group, identified by its external id.
	SubjectGroup SubjectKind = "GROUP"

	// SubjectDomain is everyone in an organisation domain.
	SubjectDomain SubjectKind = "DOMAIN"

	// SubjectAnyone is public access.
	SubjectAnyone SubjectKind = "ANYONE"

	// SubjectAnyoneWithLink is access for anyone holding the share link.
	SubjectAnyoneWithLink SubjectKind = "ANYONE_WITH_LINK"
)

// Permission is a normalised access grant on a record or record group.
type Permission struct {
	// Subject identifies the principal: a user email, group external id,
	// domain name, or empty for anyone/anyone-with-link grants.
	Subject string

	// Kind is the subject kind.
	Kind SubjectKind

	// Role is the normalised role.
	Role Role

	// TargetExternalID is the external id of the record or group.
	TargetExternalID string

	// TargetIsGroup is true when the target is a RecordGroup.
	TargetIsGroup bool
}

// Equal reports whether two permissions describe the same grant.
func (p Permission) Equal(other Permission) bool {
	return p.Subject == other.Subject &&
		p.Kind == other.Kind &&
		p.Role == other.Role &&
		p.TargetExternalID == other.TargetExternalID &&
		p.TargetIsGroup == other.TargetIsGroup
}

// RawGrant is a provider-native ACL entry, decoded at the provider client
// boundary but not yet normalised. Role and Kind hold provider vocabulary
// (e.g. Drive's "writer"/"user"); the permission resolver maps them onto
// the normalised sets.
type RawGrant struct {
	// Subject is the provider-native principal identifier.
	Subject string

	// Kind is the provider-native subject kind.
	Kind string

	// Role is the provider-native role value.
	Role string
}
