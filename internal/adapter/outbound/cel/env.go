package cel

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/expert-ai/cedar/internal/domain/authz"
)

// NewDecisionEnvironment creates a CEL environment for policy condition
// evaluation. It exposes:
//   - Principal variables: principal_id, principal_type, is_authenticated,
//     roles (org id -> role name), membership_org_ids
//   - Request variables: action
//   - Resource variables: resource_type, resource_id, resource (attribute map)
//   - Custom functions: role_at_least, org_allowed, attr
func NewDecisionEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		// Standard extensions
		ext.Strings(),
		ext.Sets(),

		// === Principal variables ===
		cel.Variable("principal_id", cel.StringType),
		cel.Variable("principal_type", cel.StringType),
		cel.Variable("is_authenticated", cel.BoolType),
		cel.Variable("roles", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("membership_org_ids", cel.ListType(cel.StringType)),

		// === Request variables ===
		cel.Variable("action", cel.StringType),

		// === Resource variables ===
		cel.Variable("resource_type", cel.StringType),
		cel.Variable("resource_id", cel.StringType),
		cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)),

		// === Custom functions ===

		// role_at_least: total-order role comparison.
		// Usage: role_at_least(roles[resource_id], "ADMIN")
		// Unknown role names on either side compare false (fail closed).
		cel.Function("role_at_least",
			cel.Overload("role_at_least_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(roleVal, minVal ref.Val) ref.Val {
					role, ok := roleVal.Value().(string)
					if !ok {
						return types.Bool(false)
					}
					min, ok := minVal.Value().(string)
					if !ok {
						return types.Bool(false)
					}
					return types.Bool(authz.Role(role).AtLeast(authz.Role(min)))
				}),
			),
		),

		// org_allowed: tenant scoping check with the platform convention
		// that an empty or absent allowed list means "unrestricted".
		// Usage: org_allowed(attr(resource, "allowedOrgIds"), membership_org_ids)
		cel.Function("org_allowed",
			cel.Overload("org_allowed_dyn_list",
				[]*cel.Type{cel.DynType, cel.ListType(cel.StringType)},
				cel.BoolType,
				cel.BinaryBinding(func(allowedVal, membershipsVal ref.Val) ref.Val {
					allowed := toStringSlice(allowedVal)
					// Empty allowed set = unrestricted, applies to all orgs.
					if len(allowed) == 0 {
						return types.Bool(true)
					}
					memberships := toStringSlice(membershipsVal)
					for _, a := range allowed {
						for _, m := range memberships {
							if a == m {
								return types.Bool(true)
							}
						}
					}
					return types.Bool(false)
				}),
			),
		),

		// attr: safe attribute access returning null for absent keys, so
		// conditions over partially populated resources fail instead of
		// erroring.
		// Usage: attr(resource, "isBeta") == true
		cel.Function("attr",
			cel.Overload("attr_map_string",
				[]*cel.Type{cel.MapType(cel.StringType, cel.DynType), cel.StringType},
				cel.DynType,
				cel.BinaryBinding(func(mapVal, keyVal ref.Val) ref.Val {
					key, ok := keyVal.Value().(string)
					if !ok {
						return types.NullValue
					}
					if m, ok := mapVal.Value().(map[ref.Val]ref.Val); ok {
						if v, found := m[types.String(key)]; found {
							return v
						}
						return types.NullValue
					}
					if goMap, ok := mapVal.Value().(map[string]any); ok {
						if v, found := goMap[key]; found {
							return types.DefaultTypeAdapter.NativeToValue(v)
						}
					}
					return types.NullValue
				}),
			),
		),
	)
}

// toStringSlice converts a CEL value into a string slice, tolerating the
// shapes attr() and native Go activations produce: null, []string, []any,
// and []ref.Val. Non-list values yield nil.
func toStringSlice(val ref.Val) []string {
	if val == nil || val == types.NullValue {
		return nil
	}
	switch v := val.Value().(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []ref.Val:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.Value().(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// BuildActivation creates a CEL activation map from an authorization request.
// Nil maps and slices are replaced with empty values so conditions can index
// them without errors.
func BuildActivation(req authz.Request) map[string]any {
	roles := make(map[string]string, len(req.Principal.Roles))
	for orgID, role := range req.Principal.Roles {
		roles[orgID] = string(role)
	}

	memberships := req.Principal.MembershipOrgIDs
	if memberships == nil {
		memberships = []string{}
	}

	attrs := req.Resource.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}

	return map[string]any{
		"principal_id":       req.Principal.ID,
		"principal_type":     string(req.Principal.Type),
		"is_authenticated":   req.Principal.IsAuthenticated,
		"roles":              roles,
		"membership_org_ids": memberships,
		"action":             req.Action,
		"resource_type":      req.Resource.Type,
		"resource_id":        req.Resource.ID,
		"resource":           attrs,
	}
}
