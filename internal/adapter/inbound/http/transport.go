package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/expert-ai/cedar/internal/adapter/outbound/memory"
	"github.com/expert-ai/cedar/internal/domain/authz"
	"github.com/expert-ai/cedar/internal/service"
)

// HTTPTransport is the inbound adapter that exposes the decision engine over
// HTTP. It serves the authorization API plus health and metrics endpoints.
type HTTPTransport struct {
	engine        authz.Engine
	principals    *service.PrincipalService
	auditService  *service.AuditService
	recentStore   *memory.MemoryAuditStore
	server        *http.Server
	addr          string
	logger        *slog.Logger
	metrics       *Metrics
	healthChecker *HealthChecker
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithAuditService enables decision audit recording.
func WithAuditService(s *service.AuditService) Option {
	return func(t *HTTPTransport) {
		t.auditService = s
	}
}

// WithRecentStore enables the /v1/decisions recent-decision endpoint.
func WithRecentStore(s *memory.MemoryAuditStore) Option {
	return func(t *HTTPTransport) {
		t.recentStore = s
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) {
		t.healthChecker = hc
	}
}

// NewHTTPTransport creates an HTTP transport adapter over the given engine.
func NewHTTPTransport(engine authz.Engine, principals *service.PrincipalService, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		engine:     engine,
		principals: principals,
		addr:       "127.0.0.1:8080",
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Start begins accepting HTTP connections and serving authorization requests.
// It blocks until the context is cancelled or an error occurs.
func (t *HTTPTransport) Start(ctx context.Context) error {
	// Create Prometheus registry and metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)

	var cacheSize func() int
	if ds, ok := t.engine.(interface{ CacheSize() int }); ok {
		cacheSize = ds.CacheSize
	}
	RegisterComponentGauges(reg, cacheSize, t.auditService)

	handler := NewDecisionHandler(t.engine, t.principals, t.auditService, t.recentStore, t.metrics)

	// Middleware order (outermost first):
	// 1. MetricsMiddleware - record duration (outermost to capture full duration)
	// 2. RequestID - extract/generate request ID and enrich logger
	// 3. Handler - authorization request handling
	authorize := http.HandlerFunc(handler.Authorize)
	decisions := http.HandlerFunc(handler.RecentDecisions)

	wrap := func(h http.Handler) http.Handler {
		h = RequestIDMiddleware(t.logger)(h)
		return MetricsMiddleware(t.metrics)(h)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/authorize", wrap(authorize))
	mux.Handle("/v1/decisions", wrap(decisions))
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", healthHandler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	// Favicon handler to prevent browser 500 errors
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		t.logger.Info("starting HTTP server", "addr", t.addr)
		err := t.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}

// healthHandler returns an HTTP handler that responds with 200 OK for health checks.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
