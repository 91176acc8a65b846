package authz

// Effect is the result a policy contributes when it matches.
type Effect string

const (
	// EffectPermit allows the request when the policy matches.
	EffectPermit Effect = "permit"
	// EffectForbid denies the request when the policy matches. Forbid is
	// absolute: no permit can override an applicable forbid.
	EffectForbid Effect = "forbid"
)

// Valid reports whether e is a known effect.
func (e Effect) Valid() bool {
	return e == EffectPermit || e == EffectForbid
}

// Policy is a single declarative authorization rule. Policies are defined at
// deploy time, validated and compiled at load, and immutable at runtime.
type Policy struct {
	// ID is the unique identifier for this policy.
	ID string
	// Description is the human-readable summary used as the decision reason
	// when this policy matches.
	Description string
	// Effect is permit or forbid.
	Effect Effect
	// PrincipalTypes restricts which principal types the policy applies to.
	// Empty means any principal type.
	PrincipalTypes []PrincipalType
	// PrincipalID optionally pins the policy to a single principal id.
	PrincipalID string
	// Actions is the set of action ids the policy applies to.
	// Empty means every action; this is the only wildcard the pattern
	// language supports and it must be stated explicitly per policy.
	Actions []string
	// ResourceTypes restricts which resource types the policy applies to.
	// Empty means any resource type.
	ResourceTypes []string
	// ResourceID optionally pins the policy to a single resource id.
	ResourceID string
	// Condition is an optional CEL expression over principal and resource
	// attributes. Empty means the policy matches whenever its patterns do.
	Condition string
}

// AppliesTo reports whether the policy's patterns cover the given principal
// type, action id, and resource type. Conditions are evaluated separately.
func (p *Policy) AppliesTo(principalType PrincipalType, action, resourceType string) bool {
	if len(p.PrincipalTypes) > 0 && !containsPrincipalType(p.PrincipalTypes, principalType) {
		return false
	}
	if len(p.Actions) > 0 && !containsString(p.Actions, action) {
		return false
	}
	if len(p.ResourceTypes) > 0 && !containsString(p.ResourceTypes, resourceType) {
		return false
	}
	return true
}

// MatchesIDs reports whether the policy's optional id pins match the request.
func (p *Policy) MatchesIDs(principalID, resourceID string) bool {
	if p.PrincipalID != "" && p.PrincipalID != principalID {
		return false
	}
	if p.ResourceID != "" && p.ResourceID != resourceID {
		return false
	}
	return true
}

func containsPrincipalType(list []PrincipalType, t PrincipalType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
