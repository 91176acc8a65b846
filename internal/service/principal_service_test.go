package service

import (
	"context"
	"errors"
	"testing"

	"github.com/expert-ai/cedar/internal/domain/authz"
)

// mockMembershipStore returns canned memberships or an error.
type mockMembershipStore struct {
	memberships map[string][]authz.Membership
	err         error
}

func (m *mockMembershipStore) MembershipsForUser(_ context.Context, userID string) ([]authz.Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[userID], nil
}

func TestBuildPrincipalNilSessionIsAnonymous(t *testing.T) {
	svc := NewPrincipalService(&mockMembershipStore{}, testLogger())

	for _, session := range []*Session{nil, {}} {
		p, err := svc.BuildPrincipal(context.Background(), session)
		if err != nil {
			t.Fatalf("BuildPrincipal error: %v", err)
		}
		if p.Type != authz.PrincipalAnonymous {
			t.Errorf("Type = %s, want Anonymous", p.Type)
		}
		if p.ID != AnonymousPrincipalID {
			t.Errorf("ID = %q, want %q", p.ID, AnonymousPrincipalID)
		}
		if p.IsAuthenticated {
			t.Error("anonymous principal must not be authenticated")
		}
	}
}

func TestBuildPrincipalLoadsMemberships(t *testing.T) {
	store := &mockMembershipStore{
		memberships: map[string][]authz.Membership{
			"user-1": {
				{OrgID: "org-1", Role: authz.RoleAdmin},
				{OrgID: "org-2", Role: authz.RoleMember},
			},
		},
	}
	svc := NewPrincipalService(store, testLogger())

	p, err := svc.BuildPrincipal(context.Background(), &Session{UserID: "user-1"})
	if err != nil {
		t.Fatalf("BuildPrincipal error: %v", err)
	}

	if p.Type != authz.PrincipalUser || !p.IsAuthenticated {
		t.Errorf("expected authenticated User principal, got %+v", p)
	}
	if p.Roles["org-1"] != authz.RoleAdmin || p.Roles["org-2"] != authz.RoleMember {
		t.Errorf("unexpected roles: %v", p.Roles)
	}
	if len(p.MembershipOrgIDs) != 2 {
		t.Errorf("MembershipOrgIDs = %v, want 2 orgs", p.MembershipOrgIDs)
	}
}

func TestBuildPrincipalNoMemberships(t *testing.T) {
	svc := NewPrincipalService(&mockMembershipStore{}, testLogger())

	p, err := svc.BuildPrincipal(context.Background(), &Session{UserID: "user-new"})
	if err != nil {
		t.Fatalf("BuildPrincipal error: %v", err)
	}
	// Authenticated but org-less: can upload files, cannot reach any
	// org-scoped resource.
	if !p.IsAuthenticated {
		t.Error("expected authenticated principal")
	}
	if len(p.Roles) != 0 || len(p.MembershipOrgIDs) != 0 {
		t.Errorf("expected empty roles and memberships, got %+v", p)
	}
}

func TestBuildPrincipalStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := NewPrincipalService(&mockMembershipStore{err: storeErr}, testLogger())

	_, err := svc.BuildPrincipal(context.Background(), &Session{UserID: "user-1"})
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestServicePrincipal(t *testing.T) {
	p := ServicePrincipal("summarization-scheduler")
	if p.Type != authz.PrincipalService {
		t.Errorf("Type = %s, want Service", p.Type)
	}
	if !p.IsAuthenticated {
		t.Error("service principals are authenticated")
	}
	if p.ID != "summarization-scheduler" {
		t.Errorf("ID = %q", p.ID)
	}
}

func TestAnonymousPrincipalDefaultID(t *testing.T) {
	if p := AnonymousPrincipal(""); p.ID != AnonymousPrincipalID {
		t.Errorf("ID = %q, want %q", p.ID, AnonymousPrincipalID)
	}
	if p := AnonymousPrincipal("health-probe"); p.ID != "health-probe" {
		t.Errorf("ID = %q, want health-probe", p.ID)
	}
}
