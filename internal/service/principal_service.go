package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expert-ai/cedar/internal/domain/authz"
)

// Session is the authenticated-session view the transport layer hands to the
// principal builder. A nil *Session means the caller is unauthenticated.
type Session struct {
	// UserID is the authenticated user's stable id.
	UserID string
}

// AnonymousPrincipalID is the default id attached to anonymous principals
// when the caller supplies none.
const AnonymousPrincipalID = "anonymous"

// PrincipalService translates sessions and membership rows into the Principal
// shape the decision engine consumes. The membership store is the only
// external collaborator; everything else is pure shaping.
type PrincipalService struct {
	memberships authz.MembershipStore
	logger      *slog.Logger
}

// NewPrincipalService creates a PrincipalService backed by the given
// membership store.
func NewPrincipalService(memberships authz.MembershipStore, logger *slog.Logger) *PrincipalService {
	return &PrincipalService{
		memberships: memberships,
		logger:      logger,
	}
}

// BuildPrincipal produces the principal for a request. A nil session yields
// an Anonymous principal; otherwise the user's memberships are loaded and
// folded into the roles map and membership org id set.
func (s *PrincipalService) BuildPrincipal(ctx context.Context, session *Session) (authz.Principal, error) {
	if session == nil || session.UserID == "" {
		return AnonymousPrincipal(AnonymousPrincipalID), nil
	}

	memberships, err := s.memberships.MembershipsForUser(ctx, session.UserID)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("load memberships for user %s: %w", session.UserID, err)
	}

	return PrincipalFromMemberships(session.UserID, memberships), nil
}

// PrincipalFromMemberships builds an authenticated User principal from
// membership rows. Later rows for the same org overwrite earlier ones; the
// store guarantees at most one role per (user, org) so this only matters for
// malformed input.
func PrincipalFromMemberships(userID string, memberships []authz.Membership) authz.Principal {
	roles := make(map[string]authz.Role, len(memberships))
	orgIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if _, exists := roles[m.OrgID]; !exists {
			orgIDs = append(orgIDs, m.OrgID)
		}
		roles[m.OrgID] = m.Role
	}
	return authz.Principal{
		Type:             authz.PrincipalUser,
		ID:               userID,
		IsAuthenticated:  true,
		Roles:            roles,
		MembershipOrgIDs: orgIDs,
	}
}

// AnonymousPrincipal builds an unauthenticated principal carrying only an
// identifier for logging.
func AnonymousPrincipal(id string) authz.Principal {
	if id == "" {
		id = AnonymousPrincipalID
	}
	return authz.Principal{
		Type: authz.PrincipalAnonymous,
		ID:   id,
	}
}

// ServicePrincipal builds a trusted internal-caller principal, identified by
// service name (e.g. the summarization scheduler).
func ServicePrincipal(name string) authz.Principal {
	return authz.Principal{
		Type:            authz.PrincipalService,
		ID:              name,
		IsAuthenticated: true,
	}
}
