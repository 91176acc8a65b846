package cedar

// Principal identifies the actor requesting an action.
type Principal struct {
	// Type is "Anonymous", "User", or "Service".
	Type string `json:"type"`
	// ID identifies the actor. Required for User and Service principals.
	ID string `json:"id"`
	// Roles maps org id to role name (e.g. "org-1" -> "ADMIN"). Optional:
	// when omitted for a User, the server loads memberships from its store.
	Roles map[string]string `json:"roles,omitempty"`
	// MembershipOrgIDs lists the orgs the user belongs to. Optional; when
	// omitted alongside Roles, membership follows the keys of Roles.
	MembershipOrgIDs []string `json:"membership_org_ids,omitempty"`
}

// Resource identifies the target of an action.
type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Request is an authorization question: may Principal perform Action on Resource.
type Request struct {
	Principal Principal `json:"principal"`
	Action    string    `json:"action"`
	Resource  Resource  `json:"resource"`
}

// Decision is the server's answer.
type Decision struct {
	// Allowed reports whether the action is permitted.
	Allowed bool `json:"allowed"`
	// PolicyID names the policy that decided. Empty for default deny.
	PolicyID string `json:"policy_id,omitempty"`
	// Reason is a human-readable explanation of the decision.
	Reason string `json:"reason"`
	// RequestID correlates the decision with server-side logs.
	RequestID string `json:"request_id"`
}
