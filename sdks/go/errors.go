package cedar

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrAccessDenied is returned by Authorize when the decision is deny.
	ErrAccessDenied = errors.New("access denied")

	// ErrServerUnreachable is returned when the decision point cannot be
	// contacted and the client is configured to fail closed.
	ErrServerUnreachable = errors.New("server unreachable")
)

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	// StatusCode is the HTTP status the server returned.
	StatusCode int
	// Message is the server's error message, when one was provided.
	Message string
	// RequestID correlates the failure with server-side logs.
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cedar: server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("cedar: server returned %d", e.StatusCode)
}

// AccessDeniedError is returned by Authorize when the decision is deny.
// It carries the denying policy and reason.
type AccessDeniedError struct {
	// PolicyID is the policy that denied the action. Empty for default deny.
	PolicyID string
	// Reason explains why the action was denied.
	Reason string
	// RequestID is the unique identifier for this evaluation.
	RequestID string
}

func (e *AccessDeniedError) Error() string {
	if e.PolicyID != "" {
		return fmt.Sprintf("access denied by policy %q: %s", e.PolicyID, e.Reason)
	}
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Is supports errors.Is(err, ErrAccessDenied).
func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// ServerUnreachableError is returned when the decision point cannot be
// contacted and the client fails closed.
type ServerUnreachableError struct {
	Cause error
}

func (e *ServerUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server unreachable: %v", e.Cause)
	}
	return "server unreachable"
}

// Unwrap returns the underlying error cause.
func (e *ServerUnreachableError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, ErrServerUnreachable).
func (e *ServerUnreachableError) Is(target error) bool {
	return target == ErrServerUnreachable
}
