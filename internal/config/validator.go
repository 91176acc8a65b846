package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers Cedar-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// audit_output: validates "stdout" or "file://<absolute-path>"
	if err := v.RegisterValidation("audit_output", validateAuditOutput); err != nil {
		return fmt.Errorf("failed to register audit_output validator: %w", err)
	}
	return nil
}

// validateAuditOutput validates the audit output field.
// Valid values: "stdout" or "file://<absolute-path>"
func validateAuditOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()

	if output == "stdout" {
		return true
	}

	// "file://<path>" requires an absolute path
	if strings.HasPrefix(output, "file://") {
		path := strings.TrimPrefix(output, "file://")
		return path != "" && filepath.IsAbs(path)
	}

	return false
}

// Validate validates the Config using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateDurations(); err != nil {
		return err
	}

	if err := c.validateUniquePolicyIDs(); err != nil {
		return err
	}

	return c.validateUniqueMemberships()
}

// validateDurations ensures duration fields parse as Go durations.
// Conditions themselves are compiled later, when the policy store loads.
func (c *Config) validateDurations() error {
	if c.Audit.FlushInterval != "" {
		if _, err := time.ParseDuration(c.Audit.FlushInterval); err != nil {
			return fmt.Errorf("audit.flush_interval: invalid duration %q", c.Audit.FlushInterval)
		}
	}
	if c.Audit.SendTimeout != "" && c.Audit.SendTimeout != "0" {
		if _, err := time.ParseDuration(c.Audit.SendTimeout); err != nil {
			return fmt.Errorf("audit.send_timeout: invalid duration %q", c.Audit.SendTimeout)
		}
	}
	return nil
}

// validateUniquePolicyIDs ensures no two policies share an id.
func (c *Config) validateUniquePolicyIDs() error {
	seen := make(map[string]struct{}, len(c.Policies))
	for i, p := range c.Policies {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("policies[%d]: duplicate policy id: %s", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// validateUniqueMemberships ensures at most one role per (user, org) pair.
func (c *Config) validateUniqueMemberships() error {
	seen := make(map[string]struct{}, len(c.Memberships))
	for i, m := range c.Memberships {
		key := m.UserID + "\x00" + m.OrgID
		if _, dup := seen[key]; dup {
			return fmt.Errorf("memberships[%d]: duplicate membership for user %s in org %s", i, m.UserID, m.OrgID)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// AuditFlushInterval returns the parsed flush interval.
// Assumes Validate has been called; falls back to 1s on parse failure.
func (c *Config) AuditFlushInterval() time.Duration {
	d, err := time.ParseDuration(c.Audit.FlushInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// AuditSendTimeout returns the parsed send timeout. "0" means drop
// immediately when the channel is full.
func (c *Config) AuditSendTimeout() time.Duration {
	if c.Audit.SendTimeout == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.Audit.SendTimeout)
	if err != nil || d < 0 {
		return 100 * time.Millisecond
	}
	return d
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "audit_output":
		return fmt.Sprintf("%s must be 'stdout' or 'file://<absolute-path>'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
