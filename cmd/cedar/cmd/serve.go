package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/expert-ai/cedar/internal/adapter/inbound/http"
	auditout "github.com/expert-ai/cedar/internal/adapter/outbound/audit"
	celeval "github.com/expert-ai/cedar/internal/adapter/outbound/cel"
	"github.com/expert-ai/cedar/internal/adapter/outbound/memory"
	"github.com/expert-ai/cedar/internal/config"
	"github.com/expert-ai/cedar/internal/domain/authz"
	"github.com/expert-ai/cedar/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the decision point server",
	Long: `Start the Cedar decision point server.

The server exposes:
  POST /v1/authorize   Evaluate an authorization request
  GET  /v1/decisions   Recent decision audit records
  GET  /health         Component health
  GET  /metrics        Prometheus metrics

Policies come from the config file; when none are configured, the built-in
platform policy bundle is loaded. All policies are compiled and validated at
startup, so a malformed policy fails the boot rather than a request.

Examples:
  # Start with config file settings
  cedar serve

  # Start with a specific config file
  cedar --config /path/to/cedar.yaml serve

  # Development mode (debug logging, seeded dev membership)
  cedar serve --dev`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, seeded dev membership)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration (without validation, so CLI flags can override first)
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override dev mode from CLI flag
	if devMode {
		cfg.DevMode = true
	}

	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Create signal context for graceful shutdown.
	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop() // Restore default: next Ctrl+C = immediate exit.
	}()

	// Priority: DevMode=true -> debug, otherwise use configured log_level
	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	return run(ctx, cfg, logger)
}

// run wires all components together and starts the HTTP transport.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.DevMode {
		logger.Warn("development mode enabled: seeded dev membership, debug logging")
	}

	// CEL evaluator: one environment shared by policy compilation and
	// per-request evaluation.
	evaluator, err := celeval.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create condition evaluator: %w", err)
	}

	// Policy set: config file, or the built-in platform bundle.
	policies := cfg.DomainPolicies()
	source := "config"
	if len(policies) == 0 {
		policies = service.PlatformPolicies()
		source = "builtin"
	}
	policyStore, err := service.NewPolicyStore(policies, evaluator, logger)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	logger.Info("policies loaded", "source", source, "count", policyStore.Len())

	decisionService := service.NewDecisionService(policyStore, evaluator, logger,
		service.WithCacheSize(cfg.Cache.Size),
	)

	// Membership store seeded from config.
	membershipStore := memory.NewMembershipStore()
	for _, m := range cfg.Memberships {
		membershipStore.Grant(m.UserID, m.OrgID, authz.Role(m.Role))
	}
	logger.Debug("seeded memberships from config",
		"rows", len(cfg.Memberships),
		"users", membershipStore.Size(),
	)

	principalService := service.NewPrincipalService(membershipStore, logger)

	// Audit pipeline: durable JSONL output plus an in-memory ring buffer for
	// the recent-decisions endpoint.
	writerStore, err := auditout.NewWriterStore(cfg.Audit.Output, logger)
	if err != nil {
		return fmt.Errorf("failed to create audit store: %w", err)
	}
	recentStore := memory.NewAuditStore(cfg.Audit.BufferSize)
	auditStore := auditout.NewTeeStore(writerStore, recentStore)
	defer func() { _ = auditStore.Close() }()

	auditService := service.NewAuditService(auditStore, logger,
		service.WithChannelSize(cfg.Audit.ChannelSize),
		service.WithBatchSize(cfg.Audit.BatchSize),
		service.WithFlushInterval(cfg.AuditFlushInterval()),
		service.WithSendTimeout(cfg.AuditSendTimeout()),
		service.WithWarningThreshold(cfg.Audit.WarningThreshold),
	)
	auditService.Start(ctx)
	defer auditService.Stop()

	healthChecker := http.NewHealthChecker(
		policyStore,
		membershipStore,
		auditService,
		Version,
	)

	logger.Info("cedar starting",
		"version", Version,
		"dev_mode", cfg.DevMode,
		"http_addr", cfg.Server.HTTPAddr,
		"policies", policyStore.Len(),
		"cache_size", cfg.Cache.Size,
		"audit_output", cfg.Audit.Output,
	)

	transport := http.NewHTTPTransport(decisionService, principalService,
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithLogger(logger),
		http.WithAuditService(auditService),
		http.WithRecentStore(recentStore),
		http.WithHealthChecker(healthChecker),
	)

	if err := transport.Start(ctx); err != nil {
		return err
	}

	logger.Info("cedar stopped")
	return nil
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
