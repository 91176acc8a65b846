package authz

import "context"

// Engine evaluates authorization requests against the loaded policy set.
type Engine interface {
	// Evaluate returns an allow/deny Decision for the request. It never
	// returns an error for caller-supplied data: malformed or partially
	// populated requests degrade to default deny.
	Evaluate(ctx context.Context, req Request) Decision
}

// Membership is one (org, role) pair for a user.
type Membership struct {
	// OrgID is the organization the membership is scoped to.
	OrgID string
	// Role is the user's role in that org. At most one role per (user, org).
	Role Role
}

// MembershipStore looks up org memberships for a user. The host application
// backs this with its own persistence; the engine only needs the read side
// when building principals from session data.
type MembershipStore interface {
	// MembershipsForUser returns all memberships for the given user id.
	// An unknown user yields an empty slice, not an error.
	MembershipsForUser(ctx context.Context, userID string) ([]Membership, error)
}
