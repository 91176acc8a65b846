// Package config provides configuration types for the Cedar decision point.
//
// Policies and memberships are static configuration: they are validated and
// loaded once at process start and are immutable at runtime. Changing them
// requires a restart (or a deployment step that starts a fresh process).
package config

import (
	"github.com/expert-ai/cedar/internal/domain/authz"
)

// Config is the top-level configuration for the Cedar decision point.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Audit configures where decision audit records are written.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// Cache configures the decision result cache.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Policies defines the authorization rules.
	// Optional: when empty, the built-in platform policy bundle is used.
	Policies []PolicyConfig `yaml:"policies" mapstructure:"policies" validate:"omitempty,dive"`

	// Memberships seeds the in-memory membership store used to build
	// principals when the caller supplies only a user id.
	Memberships []MembershipConfig `yaml:"memberships" mapstructure:"memberships" validate:"omitempty,dive"`

	// DevMode enables development defaults (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// AuditConfig configures decision audit output.
type AuditConfig struct {
	// Output specifies where audit records are written.
	// Valid values: "stdout" or "file:///absolute/path/to/audit.log"
	// Defaults to "stdout" if empty.
	Output string `yaml:"output" mapstructure:"output" validate:"required,audit_output"`

	// ChannelSize is the buffer size for the audit channel.
	// Defaults to 1000 if not specified or 0.
	ChannelSize int `yaml:"channel_size" mapstructure:"channel_size" validate:"omitempty,min=1"`

	// BatchSize is the number of records to batch before writing.
	// Defaults to 100 if not specified or 0.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"omitempty,min=1"`

	// FlushInterval is how often to flush pending records (e.g., "1s", "500ms").
	// Defaults to "1s" if not specified.
	FlushInterval string `yaml:"flush_interval" mapstructure:"flush_interval" validate:"omitempty"`

	// SendTimeout is how long to block when the channel is full (e.g., "100ms", "0").
	// "0" or empty = drop immediately (no blocking).
	// Defaults to "100ms" if not specified.
	SendTimeout string `yaml:"send_timeout" mapstructure:"send_timeout" validate:"omitempty"`

	// WarningThreshold is the percentage (0-100) at which to log warnings
	// about channel depth. Set to 0 to disable. Defaults to 80.
	WarningThreshold int `yaml:"warning_threshold" mapstructure:"warning_threshold" validate:"omitempty,min=0,max=100"`

	// BufferSize is the number of recent records kept in the in-memory ring
	// buffer for the recent-decisions endpoint. Defaults to 1000.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"omitempty,min=1"`
}

// CacheConfig configures the decision result cache.
type CacheConfig struct {
	// Size is the maximum number of cached decisions. Defaults to 1000.
	Size int `yaml:"size" mapstructure:"size" validate:"omitempty,min=1"`
}

// PolicyConfig defines a single authorization policy.
type PolicyConfig struct {
	// ID is the unique identifier for this policy.
	ID string `yaml:"id" mapstructure:"id" validate:"required"`

	// Description is the human-readable summary used as the decision reason.
	Description string `yaml:"description" mapstructure:"description"`

	// Effect is "permit" or "forbid".
	Effect string `yaml:"effect" mapstructure:"effect" validate:"required,oneof=permit forbid"`

	// Principal restricts which principals the policy applies to.
	Principal PrincipalPatternConfig `yaml:"principal" mapstructure:"principal"`

	// Actions is the set of action ids the policy applies to.
	// Empty means every action.
	Actions []string `yaml:"actions" mapstructure:"actions"`

	// Resource restricts which resources the policy applies to.
	Resource ResourcePatternConfig `yaml:"resource" mapstructure:"resource"`

	// Condition is an optional CEL expression over principal and resource
	// attributes. Compiled and validated at startup.
	Condition string `yaml:"condition" mapstructure:"condition"`
}

// PrincipalPatternConfig restricts the principals a policy applies to.
type PrincipalPatternConfig struct {
	// Types lists allowed principal types. Empty means any.
	Types []string `yaml:"types" mapstructure:"types" validate:"omitempty,dive,oneof=Anonymous User Service"`
	// ID optionally pins the policy to one principal id.
	ID string `yaml:"id" mapstructure:"id"`
}

// ResourcePatternConfig restricts the resources a policy applies to.
type ResourcePatternConfig struct {
	// Types lists allowed resource types. Empty means any.
	Types []string `yaml:"types" mapstructure:"types"`
	// ID optionally pins the policy to one resource id.
	ID string `yaml:"id" mapstructure:"id"`
}

// MembershipConfig seeds one (user, org, role) membership row.
type MembershipConfig struct {
	UserID string `yaml:"user_id" mapstructure:"user_id" validate:"required"`
	OrgID  string `yaml:"org_id" mapstructure:"org_id" validate:"required"`
	Role   string `yaml:"role" mapstructure:"role" validate:"required,oneof=OWNER ADMIN BILLING_MANAGER AUDITOR MEMBER"`
}

// ToPolicy converts a PolicyConfig to the domain policy shape.
func (p PolicyConfig) ToPolicy() authz.Policy {
	types := make([]authz.PrincipalType, 0, len(p.Principal.Types))
	for _, t := range p.Principal.Types {
		types = append(types, authz.PrincipalType(t))
	}
	return authz.Policy{
		ID:             p.ID,
		Description:    p.Description,
		Effect:         authz.Effect(p.Effect),
		PrincipalTypes: types,
		PrincipalID:    p.Principal.ID,
		Actions:        append([]string(nil), p.Actions...),
		ResourceTypes:  append([]string(nil), p.Resource.Types...),
		ResourceID:     p.Resource.ID,
		Condition:      p.Condition,
	}
}

// DomainPolicies converts all configured policies to domain policies in
// declaration order.
func (c *Config) DomainPolicies() []authz.Policy {
	out := make([]authz.Policy, 0, len(c.Policies))
	for _, p := range c.Policies {
		out = append(out, p.ToPolicy())
	}
	return out
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Server defaults — bind to localhost only for security.
	// Users who need network access must explicitly set http_addr.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	// Audit defaults
	if c.Audit.Output == "" {
		c.Audit.Output = "stdout"
	}
	if c.Audit.ChannelSize == 0 {
		c.Audit.ChannelSize = 1000
	}
	if c.Audit.BatchSize == 0 {
		c.Audit.BatchSize = 100
	}
	if c.Audit.FlushInterval == "" {
		c.Audit.FlushInterval = "1s"
	}
	if c.Audit.SendTimeout == "" {
		c.Audit.SendTimeout = "100ms"
	}
	if c.Audit.WarningThreshold == 0 {
		c.Audit.WarningThreshold = 80
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 1000
	}

	// Cache defaults
	if c.Cache.Size == 0 {
		c.Cache.Size = 1000
	}
}

// SetDevDefaults applies permissive defaults for development mode.
// This allows exercising the decision point with no membership data:
// a dev user with OWNER in a dev org.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}

	if c.Server.LogLevel == "" || c.Server.LogLevel == "info" {
		c.Server.LogLevel = "debug"
	}

	if len(c.Memberships) == 0 {
		c.Memberships = []MembershipConfig{
			{UserID: "dev-user", OrgID: "dev-org", Role: "OWNER"},
		}
	}
}
