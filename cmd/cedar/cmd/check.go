package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	celeval "github.com/expert-ai/cedar/internal/adapter/outbound/cel"
	"github.com/expert-ai/cedar/internal/adapter/outbound/memory"
	"github.com/expert-ai/cedar/internal/config"
	"github.com/expert-ai/cedar/internal/domain/authz"
	"github.com/expert-ai/cedar/internal/service"
)

var checkCmd = &cobra.Command{
	Use:   "check <request.json>",
	Short: "Evaluate a single authorization request",
	Long: `Check evaluates one authorization request against the configured policies
and prints the decision as JSON. Use "-" to read the request from stdin.

The request format matches the POST /v1/authorize body:

  {
    "principal": {"type": "User", "id": "user-1", "roles": {"org-1": "ADMIN"}},
    "action": "ManageOrg",
    "resource": {"type": "Org", "id": "org-1"}
  }

The exit code is 0 when the request is allowed and 1 when it is denied,
so check can gate scripts directly.

Examples:
  cedar check request.json
  echo '{"principal":{"type":"Anonymous"},"action":"HealthCheck","resource":{"type":"Org"}}' | cedar check -`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkRequest mirrors the /v1/authorize wire format.
type checkRequest struct {
	Principal struct {
		Type             string            `json:"type"`
		ID               string            `json:"id"`
		Roles            map[string]string `json:"roles"`
		MembershipOrgIDs []string          `json:"membership_org_ids"`
	} `json:"principal"`
	Action   string `json:"action"`
	Resource struct {
		Type       string         `json:"type"`
		ID         string         `json:"id"`
		Attributes map[string]any `json:"attributes"`
	} `json:"resource"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	var payload checkRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid request JSON: %w", err)
	}
	if payload.Action == "" {
		return fmt.Errorf("action is required")
	}
	if payload.Resource.Type == "" {
		return fmt.Errorf("resource.type is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Quiet logger: check output is the decision JSON on stdout.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	evaluator, err := celeval.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create condition evaluator: %w", err)
	}

	policies := cfg.DomainPolicies()
	if len(policies) == 0 {
		policies = service.PlatformPolicies()
	}
	store, err := service.NewPolicyStore(policies, evaluator, logger)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	engine := service.NewDecisionService(store, evaluator, logger)

	principal, err := buildCheckPrincipal(cmd.Context(), cfg, payload, logger)
	if err != nil {
		return err
	}

	decision := engine.Evaluate(cmd.Context(), authz.Request{
		Principal: principal,
		Action:    payload.Action,
		Resource: authz.Resource{
			Type:       payload.Resource.Type,
			ID:         payload.Resource.ID,
			Attributes: payload.Resource.Attributes,
		},
	})

	out, _ := json.MarshalIndent(map[string]any{
		"allowed":   decision.Allowed,
		"policy_id": decision.PolicyID,
		"reason":    decision.Reason,
	}, "", "  ")
	fmt.Println(string(out))

	if !decision.Allowed {
		os.Exit(1)
	}
	return nil
}

// buildCheckPrincipal mirrors the HTTP handler's principal construction:
// User principals without inline roles are enriched from the configured
// memberships.
func buildCheckPrincipal(ctx context.Context, cfg *config.Config, payload checkRequest, logger *slog.Logger) (authz.Principal, error) {
	p := payload.Principal
	switch authz.PrincipalType(p.Type) {
	case authz.PrincipalAnonymous, "":
		return service.AnonymousPrincipal(p.ID), nil

	case authz.PrincipalService:
		if p.ID == "" {
			return authz.Principal{}, fmt.Errorf("principal.id is required for Service principals")
		}
		return service.ServicePrincipal(p.ID), nil

	case authz.PrincipalUser:
		if p.ID == "" {
			return authz.Principal{}, fmt.Errorf("principal.id is required for User principals")
		}
		if p.Roles == nil && p.MembershipOrgIDs == nil {
			membershipStore := memory.NewMembershipStore()
			for _, m := range cfg.Memberships {
				membershipStore.Grant(m.UserID, m.OrgID, authz.Role(m.Role))
			}
			return service.NewPrincipalService(membershipStore, logger).
				BuildPrincipal(ctx, &service.Session{UserID: p.ID})
		}
		roles := make(map[string]authz.Role, len(p.Roles))
		for orgID, role := range p.Roles {
			roles[orgID] = authz.Role(role)
		}
		orgIDs := append([]string(nil), p.MembershipOrgIDs...)
		if orgIDs == nil {
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
		return authz.Principal{}, fmt.Errorf("principal.type must be Anonymous, User, or Service")
	}
}
