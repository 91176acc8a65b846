package service

import "github.com/expert-ai/cedar/internal/domain/authz"

// PlatformPolicies returns the built-in policy bundle for the Expert Agent
// platform. It is used when the configuration supplies no policies of its
// own, and doubles as the reference encoding of the platform's access rules:
// tenant isolation, beta gating, role-gated org administration, and the
// service principal carve-out for scheduled jobs.
//
// Forbid policies are declared first. Evaluation order does not depend on
// declaration order (forbids always run first), but keeping them on top
// makes the bundle read the way it evaluates.
func PlatformPolicies() []authz.Policy {
	return []authz.Policy{
		// Tenant isolation: a resource scoped to specific orgs is invisible
		// to principals outside those orgs. An empty or absent allowedOrgIds
		// means the resource is unrestricted.
		{
			ID:            "tenant-isolation",
			Description:   "resource is restricted to organizations the caller does not belong to (tenant isolation)",
			Effect:        authz.EffectForbid,
			ResourceTypes: []string{authz.ResourceAgent, authz.ResourceFile},
			Condition:     `!org_allowed(attr(resource, "allowedOrgIds"), membership_org_ids)`,
		},
		// Beta gating: beta agents are never served to unauthenticated callers.
		{
			ID:            "beta-agent-requires-auth",
			Description:   "beta agents require an authenticated caller",
			Effect:        authz.EffectForbid,
			Actions:       []string{authz.ActionGetAgent, authz.ActionQueryAgent},
			ResourceTypes: []string{authz.ResourceAgent},
			Condition:     `attr(resource, "isBeta") == true && !is_authenticated`,
		},

		// Health checks from anonymous probes (load balancer, uptime checks).
		{
			ID:             "anonymous-health-check",
			Description:    "health checks are permitted for anonymous callers",
			Effect:         authz.EffectPermit,
			PrincipalTypes: []authz.PrincipalType{authz.PrincipalAnonymous},
			Actions:        []string{authz.ActionHealthCheck},
		},
		// Public agents are readable by anyone who gets past the beta gate.
		{
			ID:            "public-agent-read",
			Description:   "public agents are readable by any caller",
			Effect:        authz.EffectPermit,
			Actions:       []string{authz.ActionGetAgent},
			ResourceTypes: []string{authz.ResourceAgent},
			Condition:     `attr(resource, "isPublic") == true`,
		},
		// Authenticated users can read and query agents that are public or
		// shared with one of their orgs.
		{
			ID:             "authenticated-agent-access",
			Description:    "authenticated users may access public agents and agents shared with their organizations",
			Effect:         authz.EffectPermit,
			PrincipalTypes: []authz.PrincipalType{authz.PrincipalUser},
			Actions:        []string{authz.ActionGetAgent, authz.ActionQueryAgent},
			ResourceTypes:  []string{authz.ResourceAgent},
			Condition:      `is_authenticated && (attr(resource, "isPublic") == true || org_allowed(attr(resource, "allowedOrgIds"), membership_org_ids))`,
		},
		// Org administration requires ADMIN or OWNER in the target org.
		{
			ID:             "org-admin-management",
			Description:    "organization management requires the ADMIN or OWNER role in the target organization",
			Effect:         authz.EffectPermit,
			PrincipalTypes: []authz.PrincipalType{authz.PrincipalUser},
			Actions:        []string{authz.ActionManageOrg, authz.ActionConfigureSSO, authz.ActionVerifyDomain},
			ResourceTypes:  []string{authz.ResourceOrg},
			Condition:      `resource_id in roles && role_at_least(roles[resource_id], "ADMIN")`,
		},
		// Audit logs are visible to admins and the scoped AUDITOR role.
		{
			ID:             "audit-log-access",
			Description:    "audit logs require the ADMIN, OWNER, or AUDITOR role in the target organization",
			Effect:         authz.EffectPermit,
			PrincipalTypes: []authz.PrincipalType{authz.PrincipalUser},
			Actions:        []string{authz.ActionViewAuditLog},
			ResourceTypes:  []string{authz.ResourceOrg},
			Condition:      `resource_id in roles && (role_at_least(roles[resource_id], "ADMIN") || roles[resource_id] == "AUDITOR")`,
		},
		// Billing top-ups are for admins and the scoped BILLING_MANAGER role.
		{
			ID:             "billing-top-up",
			Description:    "token top-ups require the ADMIN, OWNER, or BILLING_MANAGER role in the target organization",
			Effect:         authz.EffectPermit,
			PrincipalTypes: []authz.PrincipalType{authz.PrincipalUser},
			Actions:        []string{authz.ActionTopUp},
			ResourceTypes:  []string{authz.ResourceOrg},
			Condition:      `resource_id in roles && (role_at_least(roles[resource_id], "ADMIN") || roles[resource_id] == "BILLING_MANAGER")`,
		},
		// Any authenticated user can upload files; tenant isolation above
		// still screens files scoped to other orgs.
		{
			ID:             "authenticated-file-upload",
			Description:    "file uploads require an authenticated user",
			Effect:         authz.EffectPermit,
			PrincipalTypes: []authz.PrincipalType{authz.PrincipalUser},
			Actions:        []string{authz.ActionUploadFile},
			ResourceTypes:  []string{authz.ResourceFile},
			Condition:      `is_authenticated`,
		},
		// Internal service callers (the summarization scheduler) run
		// maintenance actions without per-user role checks.
		{
			ID:             "service-internal-jobs",
			Description:    "internal service callers may run scheduled maintenance actions",
			Effect:         authz.EffectPermit,
			PrincipalTypes: []authz.PrincipalType{authz.PrincipalService},
			Actions:        []string{authz.ActionTriggerSummarization, authz.ActionHealthCheck},
		},
	}
}
