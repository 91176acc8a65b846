package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/expert-ai/cedar/internal/adapter/outbound/memory"
	"github.com/expert-ai/cedar/internal/domain/audit"
	"github.com/expert-ai/cedar/internal/domain/authz"
	"github.com/expert-ai/cedar/internal/service"
)

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// AuthorizationRequest is the wire format for POST /v1/authorize.
type AuthorizationRequest struct {
	Principal PrincipalPayload `json:"principal"`
	Action    string           `json:"action"`
	Resource  ResourcePayload  `json:"resource"`
}

// PrincipalPayload describes the requesting actor.
//
// For User principals the caller may supply roles and membership org ids
// inline (the host platform already knows them), or supply only the id and
// let the decision point load memberships from its store.
type PrincipalPayload struct {
	Type             string            `json:"type"`
	ID               string            `json:"id"`
	Roles            map[string]string `json:"roles,omitempty"`
	MembershipOrgIDs []string          `json:"membership_org_ids,omitempty"`
}

// ResourcePayload describes the target of the action.
type ResourcePayload struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// AuthorizationResponse is the wire format of a decision.
type AuthorizationResponse struct {
	Allowed   bool   `json:"allowed"`
	PolicyID  string `json:"policy_id,omitempty"`
	Reason    string `json:"reason"`
	RequestID string `json:"request_id"`
}

// errorResponse is the wire format for request-level errors.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// DecisionHandler serves the authorization API.
type DecisionHandler struct {
	engine     authz.Engine
	principals *service.PrincipalService
	audit      *service.AuditService
	recent     *memory.MemoryAuditStore // nil disables /v1/decisions
	metrics    *Metrics
}

// NewDecisionHandler creates the handler for the authorization endpoints.
// audit, recent, and metrics are optional; pass nil to disable.
func NewDecisionHandler(
	engine authz.Engine,
	principals *service.PrincipalService,
	auditService *service.AuditService,
	recent *memory.MemoryAuditStore,
	metrics *Metrics,
) *DecisionHandler {
	return &DecisionHandler{
		engine:     engine,
		principals: principals,
		audit:      auditService,
		recent:     recent,
		metrics:    metrics,
	}
}

// Authorize handles POST /v1/authorize.
func (h *DecisionHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		writeError(w, r, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer func() { _ = r.Body.Close() }()

	var payload AuthorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large (max 1MB)")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if payload.Action == "" {
		writeError(w, r, http.StatusBadRequest, "action is required")
		return
	}
	if payload.Resource.Type == "" {
		writeError(w, r, http.StatusBadRequest, "resource.type is required")
		return
	}

	principal, err := h.buildPrincipal(r, payload.Principal)
	if err != nil {
		LoggerFromContext(r.Context()).Error("failed to build principal", "error", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req := authz.Request{
		Principal: principal,
		Action:    payload.Action,
		Resource: authz.Resource{
			Type:       payload.Resource.Type,
			ID:         payload.Resource.ID,
			Attributes: payload.Resource.Attributes,
		},
	}

	start := time.Now()
	decision := h.engine.Evaluate(r.Context(), req)
	latency := time.Since(start)

	h.record(r, req, decision, latency)

	writeJSON(w, http.StatusOK, AuthorizationResponse{
		Allowed:   decision.Allowed,
		PolicyID:  decision.PolicyID,
		Reason:    decision.Reason,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// buildPrincipal translates the wire payload into a domain principal.
// User principals without inline roles are enriched from the membership store.
func (h *DecisionHandler) buildPrincipal(r *http.Request, p PrincipalPayload) (authz.Principal, error) {
	switch authz.PrincipalType(p.Type) {
	case authz.PrincipalAnonymous, "":
		return service.AnonymousPrincipal(p.ID), nil

	case authz.PrincipalService:
		if p.ID == "" {
			return authz.Principal{}, errors.New("principal.id is required for Service principals")
		}
		return service.ServicePrincipal(p.ID), nil

	case authz.PrincipalUser:
		if p.ID == "" {
			return authz.Principal{}, errors.New("principal.id is required for User principals")
		}
		if p.Roles == nil && p.MembershipOrgIDs == nil {
			return h.principals.BuildPrincipal(r.Context(), &service.Session{UserID: p.ID})
		}
		roles := make(map[string]authz.Role, len(p.Roles))
		for orgID, role := range p.Roles {
			roles[orgID] = authz.Role(role)
		}
		orgIDs := append([]string(nil), p.MembershipOrgIDs...)
		if orgIDs == nil {
			// Inline roles without an explicit org list imply membership in
			// exactly the orgs the roles name.
			orgIDs = make([]string, 0, len(roles))
			for orgID := range roles {
				orgIDs = append(orgIDs, orgID)
			}
		}
		return authz.Principal{
			Type:             authz.PrincipalUser,
			ID:               p.ID,
			IsAuthenticated:  true,
			Roles:            roles,
			MembershipOrgIDs: orgIDs,
		}, nil

	default:
		return authz.Principal{}, errors.New("principal.type must be Anonymous, User, or Service")
	}
}

// record emits metrics and the audit trail entry for a decision.
func (h *DecisionHandler) record(r *http.Request, req authz.Request, decision authz.Decision, latency time.Duration) {
	outcome := audit.DecisionDeny
	if decision.Allowed {
		outcome = audit.DecisionAllow
	}

	if h.metrics != nil {
		h.metrics.DecisionsTotal.WithLabelValues(outcome).Inc()
	}

	if h.audit == nil {
		return
	}
	h.audit.Record(audit.DecisionRecord{
		Timestamp:     time.Now().UTC(),
		RequestID:     RequestIDFromContext(r.Context()),
		PrincipalID:   req.Principal.ID,
		PrincipalType: string(req.Principal.Type),
		Action:        req.Action,
		ResourceType:  req.Resource.Type,
		ResourceID:    req.Resource.ID,
		ResourceAttrs: audit.RedactSensitiveAttrs(req.Resource.Attributes),
		Decision:      outcome,
		Reason:        decision.Reason,
		PolicyID:      decision.PolicyID,
		LatencyMicros: latency.Microseconds(),
	})
}

// RecentDecisions handles GET /v1/decisions. It returns recent decision
// records newest first, up to the limit query parameter (default 50).
func (h *DecisionHandler) RecentDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.recent == nil {
		writeError(w, r, http.StatusNotFound, "recent decisions not enabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, r, http.StatusBadRequest, "limit must be an integer between 1 and 1000")
			return
		}
		limit = n
	}

	records := h.recent.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"decisions": records,
		"count":     len(records),
	})
}

// writeJSON serializes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
