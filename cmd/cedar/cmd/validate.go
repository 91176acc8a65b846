package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	celeval "github.com/expert-ai/cedar/internal/adapter/outbound/cel"
	"github.com/expert-ai/cedar/internal/config"
	"github.com/expert-ai/cedar/internal/service"
)

var validatePrint bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file and its policies",
	Long: `Validate loads the configuration, checks it against the schema, and
compiles every policy condition. It exits non-zero on the first problem,
printing what failed and in which policy.

This runs the exact startup path of "cedar serve", so a config that
validates here will boot.

Examples:
  cedar validate
  cedar --config /path/to/cedar.yaml validate
  cedar validate --print`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validatePrint, "print", false,
		"print the effective configuration (defaults and env overrides applied) as YAML")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	evaluator, err := celeval.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create condition evaluator: %w", err)
	}

	policies := cfg.DomainPolicies()
	source := "config"
	if len(policies) == 0 {
		policies = service.PlatformPolicies()
		source = "builtin"
	}

	store, err := service.NewPolicyStore(policies, evaluator, logger)
	if err != nil {
		return err
	}

	if configFile := config.ConfigFileUsed(); configFile != "" {
		fmt.Printf("config file:  %s\n", configFile)
	} else {
		fmt.Println("config file:  (none, env vars and defaults)")
	}
	fmt.Printf("policies:     %d (%s)\n", store.Len(), source)
	fmt.Printf("memberships:  %d\n", len(cfg.Memberships))
	fmt.Println("OK")

	if validatePrint {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal effective config: %w", err)
		}
		fmt.Println("---")
		fmt.Print(string(out))
	}
	return nil
}
