// Package service contains application services.
package service

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	celeval "github.com/expert-ai/cedar/internal/adapter/outbound/cel"
	"github.com/expert-ai/cedar/internal/domain/authz"
)

// CompiledPolicy is a policy with its condition pre-compiled to a CEL program.
type CompiledPolicy struct {
	authz.Policy
	// Program is the compiled condition, nil when the policy has no condition.
	Program cel.Program
}

// PolicyStore holds the immutable, load-validated policy set. Policies are
// validated and compiled once at construction; the store exposes no mutation
// operations and is safe to share across goroutines without locking.
// Reloading requires constructing a fresh store.
type PolicyStore struct {
	policies []CompiledPolicy
	// byAction indexes policies by exact action id, in declaration order.
	byAction map[string][]int
	// anyAction lists policies that apply to every action, in declaration order.
	anyAction []int
}

// NewPolicyStore validates, compiles, and indexes the given policies.
// Any malformed policy (unknown effect, duplicate id, uncompilable condition)
// fails construction; this is a startup error, never a per-request one.
func NewPolicyStore(policies []authz.Policy, evaluator *celeval.Evaluator, logger *slog.Logger) (*PolicyStore, error) {
	compiled := make([]CompiledPolicy, 0, len(policies))
	seen := make(map[string]struct{}, len(policies))

	for i, p := range policies {
		if p.ID == "" {
			return nil, fmt.Errorf("policy[%d]: id is required", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("policy %q: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}

		if !p.Effect.Valid() {
			return nil, fmt.Errorf("policy %q: unknown effect %q (must be permit or forbid)", p.ID, p.Effect)
		}

		cp := CompiledPolicy{Policy: p}
		if p.Condition != "" {
			if err := evaluator.ValidateExpression(p.Condition); err != nil {
				return nil, fmt.Errorf("policy %q: %w", p.ID, err)
			}
			prg, err := evaluator.Compile(p.Condition)
			if err != nil {
				return nil, fmt.Errorf("policy %q: %w", p.ID, err)
			}
			cp.Program = prg
		}
		compiled = append(compiled, cp)
	}

	s := &PolicyStore{
		policies: compiled,
		byAction: make(map[string][]int),
	}
	for i, p := range compiled {
		if len(p.Actions) == 0 {
			s.anyAction = append(s.anyAction, i)
			continue
		}
		for _, action := range p.Actions {
			s.byAction[action] = append(s.byAction[action], i)
		}
	}

	logger.Info("policy store loaded",
		"policies", len(compiled),
		"indexed_actions", len(s.byAction),
		"any_action_policies", len(s.anyAction),
	)

	return s, nil
}

// Len returns the number of loaded policies.
func (s *PolicyStore) Len() int {
	return len(s.policies)
}

// PoliciesFor returns the policies whose patterns could apply to the given
// principal type, action id, and resource type, in declaration order.
// Declaration order matters only for which forbid reason wins; forbid
// precedence itself does not depend on it.
func (s *PolicyStore) PoliciesFor(principalType authz.PrincipalType, action, resourceType string) []CompiledPolicy {
	exact := s.byAction[action]

	// Merge exact and any-action buckets preserving declaration order.
	candidates := make([]CompiledPolicy, 0, len(exact)+len(s.anyAction))
	i, j := 0, 0
	for i < len(exact) || j < len(s.anyAction) {
		var idx int
		switch {
		case i >= len(exact):
			idx = s.anyAction[j]
			j++
		case j >= len(s.anyAction):
			idx = exact[i]
			i++
		case exact[i] < s.anyAction[j]:
			idx = exact[i]
			i++
		default:
			idx = s.anyAction[j]
			j++
		}
		p := s.policies[idx]
		if p.AppliesTo(principalType, action, resourceType) {
			candidates = append(candidates, p)
		}
	}
	return candidates
}
