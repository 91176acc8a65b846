package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/expert-ai/cedar/internal/adapter/outbound/memory"
	"github.com/expert-ai/cedar/internal/service"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// HealthChecker verifies component health.
type HealthChecker struct {
	policyStore     *service.PolicyStore
	membershipStore *memory.MemoryMembershipStore
	auditService    *service.AuditService
	version         string
}

// NewHealthChecker creates a HealthChecker with optional components.
// Pass nil for components that aren't available.
func NewHealthChecker(
	policyStore *service.PolicyStore,
	membershipStore *memory.MemoryMembershipStore,
	auditService *service.AuditService,
	version string,
) *HealthChecker {
	return &HealthChecker{
		policyStore:     policyStore,
		membershipStore: membershipStore,
		auditService:    auditService,
		version:         version,
	}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	// Policies are loaded at startup; an empty store means every request
	// falls through to default deny, which is worth surfacing.
	if h.policyStore != nil {
		if n := h.policyStore.Len(); n > 0 {
			checks["policy_store"] = fmt.Sprintf("ok: %d policies", n)
		} else {
			checks["policy_store"] = "empty: all requests default-deny"
		}
	} else {
		checks["policy_store"] = "not configured"
	}

	// Check membership store accessibility
	if h.membershipStore != nil {
		// Size() acquires lock - if this hangs, we have a problem
		_ = h.membershipStore.Size()
		checks["membership_store"] = "ok"
	} else {
		checks["membership_store"] = "not configured"
	}

	// Check audit service channel depth
	if h.auditService != nil {
		depth := h.auditService.ChannelDepth()
		capacity := h.auditService.ChannelCapacity()
		percentFull := 0
		if capacity > 0 {
			percentFull = depth * 100 / capacity
		}

		if percentFull > 90 {
			// >90% full is unhealthy - system is under backpressure
			checks["audit"] = fmt.Sprintf("degraded: %d/%d (%d%%)", depth, capacity, percentFull)
			healthy = false
		} else {
			checks["audit"] = fmt.Sprintf("ok: %d/%d (%d%%)", depth, capacity, percentFull)
		}

		// Also check dropped records (warning indicator)
		drops := h.auditService.DroppedRecords()
		if drops > 0 {
			checks["audit_drops"] = fmt.Sprintf("%d dropped", drops)
		}
	} else {
		checks["audit"] = "not configured"
	}

	// Add Go runtime info
	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
