// Package audit contains domain types for decision audit logging.
package audit

import (
	"strings"
	"time"
)

// Decision constants for audit records.
const (
	// DecisionAllow indicates the request was permitted.
	DecisionAllow = "allow"
	// DecisionDeny indicates the request was denied.
	DecisionDeny = "deny"
)

// DecisionRecord represents a single evaluated authorization request.
// Records are written by the caller of the engine, never by the engine
// itself; evaluation stays a pure function.
type DecisionRecord struct {
	// Timestamp is when the request was evaluated (UTC).
	Timestamp time.Time `json:"timestamp"`
	// RequestID correlates the record with transport-level logs.
	RequestID string `json:"request_id"`
	// PrincipalID identifies the actor (user id, service name, or the
	// anonymous caller's label).
	PrincipalID string `json:"principal_id"`
	// PrincipalType is Anonymous, User, or Service.
	PrincipalType string `json:"principal_type"`
	// Action is the action id that was authorized.
	Action string `json:"action"`
	// ResourceType and ResourceID identify the target.
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	// ResourceAttrs are the resource attributes the caller supplied,
	// with sensitive keys redacted.
	ResourceAttrs map[string]any `json:"resource_attrs,omitempty"`
	// Decision is "allow" or "deny".
	Decision string `json:"decision"`
	// Reason is the matched policy's description, or the default-deny reason.
	Reason string `json:"reason"`
	// PolicyID is the id of the policy that decided, empty for default deny.
	PolicyID string `json:"policy_id,omitempty"`
	// LatencyMicros is the evaluation latency in microseconds.
	LatencyMicros int64 `json:"latency_micros"`
}

// sensitiveKeywords lists substrings that indicate a sensitive attribute key.
// Comparison is case-insensitive.
var sensitiveKeywords = []string{
	"password", "secret", "token", "api_key", "apikey",
	"credential", "private_key", "privatekey", "ssn",
}

// RedactSensitiveAttrs returns a copy of attrs with sensitive values masked.
// A key is considered sensitive if it contains any of the sensitiveKeywords
// (case-insensitive). Values are replaced with "***REDACTED***".
func RedactSensitiveAttrs(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return attrs
	}
	redacted := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if isSensitiveKey(k) {
			redacted[k] = "***REDACTED***"
		} else {
			redacted[k] = v
		}
	}
	return redacted
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
