package memory

import (
	"context"
	"testing"

	"github.com/expert-ai/cedar/internal/domain/authz"
)

func TestMembershipStoreGrantAndLookup(t *testing.T) {
	store := NewMembershipStore()
	store.Grant("user-1", "org-1", authz.RoleAdmin)
	store.Grant("user-1", "org-2", authz.RoleMember)
	store.Grant("user-2", "org-1", authz.RoleOwner)

	rows, err := store.MembershipsForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MembershipsForUser error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d memberships, want 2", len(rows))
	}
	if rows[0].OrgID != "org-1" || rows[0].Role != authz.RoleAdmin {
		t.Errorf("rows[0] = %+v", rows[0])
	}

	if store.Size() != 2 {
		t.Errorf("Size() = %d, want 2 users", store.Size())
	}
}

func TestMembershipStoreGrantReplacesRole(t *testing.T) {
	store := NewMembershipStore()
	store.Grant("user-1", "org-1", authz.RoleMember)
	store.Grant("user-1", "org-1", authz.RoleOwner)

	rows, err := store.MembershipsForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MembershipsForUser error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d memberships, want 1 (one role per org)", len(rows))
	}
	if rows[0].Role != authz.RoleOwner {
		t.Errorf("Role = %s, want OWNER after re-grant", rows[0].Role)
	}
}

func TestMembershipStoreRevoke(t *testing.T) {
	store := NewMembershipStore()
	store.Grant("user-1", "org-1", authz.RoleAdmin)
	store.Grant("user-1", "org-2", authz.RoleMember)

	store.Revoke("user-1", "org-1")
	store.Revoke("user-1", "org-missing") // no-op
	store.Revoke("user-missing", "org-1") // no-op

	rows, err := store.MembershipsForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MembershipsForUser error: %v", err)
	}
	if len(rows) != 1 || rows[0].OrgID != "org-2" {
		t.Errorf("after revoke, rows = %+v, want only org-2", rows)
	}
}

func TestMembershipStoreUnknownUser(t *testing.T) {
	store := NewMembershipStore()

	rows, err := store.MembershipsForUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("MembershipsForUser error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d memberships for unknown user, want 0", len(rows))
	}
}

func TestMembershipStoreReturnsCopy(t *testing.T) {
	store := NewMembershipStore()
	store.Grant("user-1", "org-1", authz.RoleAdmin)

	rows, _ := store.MembershipsForUser(context.Background(), "user-1")
	rows[0].Role = authz.RoleOwner

	again, _ := store.MembershipsForUser(context.Background(), "user-1")
	if again[0].Role != authz.RoleAdmin {
		t.Error("caller mutation leaked into the store")
	}
}
