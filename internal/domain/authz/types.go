// Package authz contains domain types for authorization decisions.
package authz

// PrincipalType identifies the kind of actor requesting access.
type PrincipalType string

const (
	// PrincipalAnonymous is an unauthenticated caller. It carries only an
	// identifier used for logging and correlation.
	PrincipalAnonymous PrincipalType = "Anonymous"
	// PrincipalUser is an authenticated platform user with org memberships.
	PrincipalUser PrincipalType = "User"
	// PrincipalService is a trusted internal caller such as a scheduled job.
	// Service principals bypass per-user role checks but remain subject to
	// action-specific policies.
	PrincipalService PrincipalType = "Service"
)

// Resource type constants for the Expert Agent platform.
const (
	ResourceAgent = "Agent"
	ResourceOrg   = "Org"
	ResourceFile  = "File"
	ResourceUser  = "User"
)

// Action identifiers. Actions are opaque strings matched exactly by policies;
// there is no hierarchy or wildcarding beyond what policies encode explicitly.
const (
	ActionGetAgent             = "GetAgent"
	ActionQueryAgent           = "QueryAgent"
	ActionManageOrg            = "ManageOrg"
	ActionConfigureSSO         = "ConfigureSSO"
	ActionViewAuditLog         = "ViewAuditLog"
	ActionTopUp                = "TopUp"
	ActionUploadFile           = "UploadFile"
	ActionHealthCheck          = "HealthCheck"
	ActionTriggerSummarization = "TriggerSummarization"
	ActionVerifyDomain         = "VerifyDomain"
)

// Well-known resource attribute keys consumed by policy conditions.
// Callers populate these when constructing resource descriptors; the engine
// itself only reads whatever keys conditions reference.
const (
	AttrIsPublic      = "isPublic"
	AttrIsBeta        = "isBeta"
	AttrAllowedOrgIDs = "allowedOrgIds"
)

// Principal is the entity requesting access.
type Principal struct {
	// Type is one of PrincipalAnonymous, PrincipalUser, PrincipalService.
	Type PrincipalType
	// ID is a stable identifier: user id, service name, or a label for
	// anonymous callers (e.g. "health-check").
	ID string
	// IsAuthenticated is true for User principals built from a live session
	// and for Service principals.
	IsAuthenticated bool
	// Roles maps org id to the principal's role in that org.
	// A user holds at most one role per org.
	Roles map[string]Role
	// MembershipOrgIDs is the set of org ids the principal belongs to.
	// Kept alongside Roles so conditions can test membership without
	// caring about the specific role.
	MembershipOrgIDs []string
}

// Resource is the target of an action.
type Resource struct {
	// Type is the resource type (Agent, Org, File, User).
	Type string
	// ID is the resource identifier. For Org resources this is the tenant id
	// used by isolation checks.
	ID string
	// Attributes are type-specific attributes referenced by conditions
	// (isPublic, isBeta, allowedOrgIds, ...). Absent keys degrade to
	// condition-not-satisfied, never to an evaluation error.
	Attributes map[string]any
}

// Request is a single authorization question: may principal perform action
// on resource. Requests are constructed fresh per call and never stored by
// the engine.
type Request struct {
	Principal Principal
	Action    string
	Resource  Resource
}

// Decision is the outcome of evaluating a Request against the policy set.
type Decision struct {
	// Allowed is true when a permit policy matched and no forbid did.
	Allowed bool
	// PolicyID is the id of the policy that produced this decision.
	// Empty for the default-deny fallback.
	PolicyID string
	// Reason is a human-readable explanation for logs and audit. It names
	// internal policies and must not be shown verbatim to end users.
	Reason string
}

// DefaultDenyReason is the reason attached to decisions where no policy
// matched the request.
const DefaultDenyReason = "no matching policy (default deny)"
