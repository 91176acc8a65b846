package authz

// Role is an org-scoped role name. Roles form a total order by privilege:
// OWNER > ADMIN > BILLING_MANAGER = AUDITOR > MEMBER. BILLING_MANAGER and
// AUDITOR are parallel scoped roles at the same rank.
type Role string

const (
	RoleOwner          Role = "OWNER"
	RoleAdmin          Role = "ADMIN"
	RoleBillingManager Role = "BILLING_MANAGER"
	RoleAuditor        Role = "AUDITOR"
	RoleMember         Role = "MEMBER"
)

// roleRanks orders roles by privilege. Unknown roles have rank 0 and
// therefore never satisfy an AtLeast check.
var roleRanks = map[Role]int{
	RoleOwner:          4,
	RoleAdmin:          3,
	RoleBillingManager: 2,
	RoleAuditor:        2,
	RoleMember:         1,
}

// Valid reports whether r is a known role name.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the privilege rank of the role, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r holds at least the privilege of min.
// Unknown roles on either side compare false, so a mistyped role name in a
// policy or membership row denies rather than allows.
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRanks[r]
	if !ok {
		return false
	}
	mr, ok := roleRanks[min]
	if !ok {
		return false
	}
	return rr >= mr
}

// KnownRoles lists all valid role names, highest privilege first.
func KnownRoles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleBillingManager, RoleAuditor, RoleMember}
}
