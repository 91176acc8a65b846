package authz

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		name string
		role Role
		min  Role
		want bool
	}{
		{"owner at least owner", RoleOwner, RoleOwner, true},
		{"owner at least admin", RoleOwner, RoleAdmin, true},
		{"owner at least member", RoleOwner, RoleMember, true},
		{"admin at least admin", RoleAdmin, RoleAdmin, true},
		{"admin not at least owner", RoleAdmin, RoleOwner, false},
		{"member not at least admin", RoleMember, RoleAdmin, false},
		{"member at least member", RoleMember, RoleMember, true},
		{"billing manager at least member", RoleBillingManager, RoleMember, true},
		{"billing manager not at least admin", RoleBillingManager, RoleAdmin, false},
		{"auditor at least member", RoleAuditor, RoleMember, true},
		{"auditor not at least admin", RoleAuditor, RoleAdmin, false},
		// BILLING_MANAGER and AUDITOR share a rank; each is "at least" the other.
		{"billing manager at least auditor", RoleBillingManager, RoleAuditor, true},
		{"auditor at least billing manager", RoleAuditor, RoleBillingManager, true},
		// Unknown roles fail closed on both sides.
		{"unknown role never suffices", Role("SUPERUSER"), RoleMember, false},
		{"unknown minimum never satisfied", RoleOwner, Role("ROOT"), false},
		{"empty role", Role(""), RoleMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.AtLeast(tt.min); got != tt.want {
				t.Errorf("Role(%q).AtLeast(%q) = %v, want %v", tt.role, tt.min, got, tt.want)
			}
		})
	}
}

func TestRoleRankOrdering(t *testing.T) {
	// The platform role order is total: OWNER > ADMIN > {BILLING_MANAGER, AUDITOR} > MEMBER.
	if !(RoleOwner.Rank() > RoleAdmin.Rank()) {
		t.Error("expected OWNER to outrank ADMIN")
	}
	if !(RoleAdmin.Rank() > RoleBillingManager.Rank()) {
		t.Error("expected ADMIN to outrank BILLING_MANAGER")
	}
	if RoleBillingManager.Rank() != RoleAuditor.Rank() {
		t.Error("expected BILLING_MANAGER and AUDITOR to share a rank")
	}
	if !(RoleAuditor.Rank() > RoleMember.Rank()) {
		t.Error("expected AUDITOR to outrank MEMBER")
	}
	if Role("UNKNOWN").Rank() != 0 {
		t.Errorf("expected unknown role rank 0, got %d", Role("UNKNOWN").Rank())
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range KnownRoles() {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	for _, r := range []Role{"", "owner", "SUPERUSER"} {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}
