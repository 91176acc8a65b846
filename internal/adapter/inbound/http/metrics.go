// Package http provides the HTTP transport adapter for the decision point.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/expert-ai/cedar/internal/service"
)

// Metrics holds all Prometheus metrics for the Cedar decision point.
// Pass to components that need to record metrics.
type Metrics struct {
	DecisionsTotal  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cedar",
				Name:      "decisions_total",
				Help:      "Total authorization decisions by outcome",
			},
			[]string{"decision"}, // decision=allow/deny
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cedar",
				Name:      "request_duration_seconds",
				Help:      "Authorization request duration in seconds",
				Buckets:   prometheus.DefBuckets, // 5ms to 10s
			},
			[]string{"endpoint"},
		),
	}
}

// RegisterComponentGauges exports read-only stats owned by other components:
// decision cache occupancy, audit channel depth, and dropped audit records.
func RegisterComponentGauges(reg prometheus.Registerer, cacheSize func() int, auditService *service.AuditService) {
	if cacheSize != nil {
		promauto.With(reg).NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "cedar",
				Name:      "decision_cache_entries",
				Help:      "Current number of cached decisions",
			},
			func() float64 { return float64(cacheSize()) },
		)
	}
	if auditService != nil {
		promauto.With(reg).NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "cedar",
				Name:      "audit_channel_depth",
				Help:      "Current audit channel occupancy",
			},
			func() float64 { return float64(auditService.ChannelDepth()) },
		)
		promauto.With(reg).NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "cedar",
				Name:      "audit_dropped_records",
				Help:      "Total audit records dropped due to backpressure",
			},
			func() float64 { return float64(auditService.DroppedRecords()) },
		)
	}
}
