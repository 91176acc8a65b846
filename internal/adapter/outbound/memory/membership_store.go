// Package memory provides in-memory adapter implementations.
// Thread-safe; intended for the standalone PDP, development, and tests.
package memory

import (
	"context"
	"sync"

	"github.com/expert-ai/cedar/internal/domain/authz"
)

// MemoryMembershipStore implements authz.MembershipStore with an in-memory
// map seeded from configuration. The host platform backs this interface with
// its relational store; the standalone PDP uses this adapter.
type MemoryMembershipStore struct {
	mu          sync.RWMutex
	memberships map[string][]authz.Membership // user id -> memberships
}

// NewMembershipStore creates an empty in-memory membership store.
func NewMembershipStore() *MemoryMembershipStore {
	return &MemoryMembershipStore{
		memberships: make(map[string][]authz.Membership),
	}
}

// Grant assigns a role to a user in an org. A user holds at most one role
// per org; granting again for the same org replaces the previous role.
func (s *MemoryMembershipStore) Grant(userID, orgID string, role authz.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.memberships[userID]
	for i := range rows {
		if rows[i].OrgID == orgID {
			rows[i].Role = role
			return
		}
	}
	s.memberships[userID] = append(rows, authz.Membership{OrgID: orgID, Role: role})
}

// Revoke removes a user's membership in an org. Unknown pairs are a no-op.
func (s *MemoryMembershipStore) Revoke(userID, orgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.memberships[userID]
	for i := range rows {
		if rows[i].OrgID == orgID {
			s.memberships[userID] = append(rows[:i], rows[i+1:]...)
			return
		}
	}
}

// MembershipsForUser returns all memberships for the given user id.
// Unknown users yield an empty slice.
func (s *MemoryMembershipStore) MembershipsForUser(_ context.Context, userID string) ([]authz.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.memberships[userID]
	// Return a copy to prevent mutation
	out := make([]authz.Membership, len(rows))
	copy(out, rows)
	return out, nil
}

// Size returns the number of users with at least one membership.
func (s *MemoryMembershipStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memberships)
}

// Compile-time interface verification.
var _ authz.MembershipStore = (*MemoryMembershipStore)(nil)
