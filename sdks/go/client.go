package cedar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client talks to the Cedar decision point over HTTP.
type Client struct {
	serverAddr       string
	failMode         string
	timeout          time.Duration
	httpClient       *http.Client
	defaultPrincipal Principal

	// Allowed-decision cache.
	cache        sync.Map
	cacheTTL     time.Duration
	cacheMaxSize int
	cacheCount   int64
	cacheMu      sync.Mutex

	logger *slog.Logger
}

// cacheEntry is a cached decision with expiry.
type cacheEntry struct {
	decision  *Decision
	expiresAt time.Time
	createdAt time.Time
}

// NewClient creates a Cedar client. Configuration is read from CEDAR_*
// environment variables; options override them.
func NewClient(opts ...Option) *Client {
	c := &Client{
		serverAddr:   os.Getenv("CEDAR_SERVER_ADDR"),
		failMode:     envOrDefault("CEDAR_FAIL_MODE", "closed"),
		timeout:      parseDurationEnv("CEDAR_TIMEOUT", 5*time.Second),
		cacheTTL:     parseDurationEnv("CEDAR_CACHE_TTL", 5*time.Second),
		cacheMaxSize: parseIntEnv("CEDAR_CACHE_MAX_SIZE", 1000),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Authorize evaluates the request and returns the decision. On deny it
// returns the Decision together with an *AccessDeniedError so callers can
// either branch on the error or inspect the decision details. If the server
// is unreachable the fail mode decides: "closed" returns
// *ServerUnreachableError, "open" returns a synthetic allow.
func (c *Client) Authorize(ctx context.Context, req Request) (*Decision, error) {
	if req.Principal.Type == "" && req.Principal.ID == "" && c.defaultPrincipal.ID != "" {
		req.Principal = c.defaultPrincipal
	}

	cacheKey := c.buildCacheKey(req)
	if d, ok := c.getFromCache(cacheKey); ok {
		return d, nil
	}

	decision, err := c.doAuthorize(ctx, req)
	if err != nil {
		if isConnectionError(err) {
			if c.failMode != "open" {
				return nil, &ServerUnreachableError{Cause: err}
			}
			c.logger.Warn("cedar server unreachable, failing open",
				"server_addr", c.serverAddr,
				"error", err,
			)
			return &Decision{
				Allowed: true,
				Reason:  "server unreachable, fail-open",
			}, nil
		}
		return nil, err
	}

	if !decision.Allowed {
		return decision, &AccessDeniedError{
			PolicyID:  decision.PolicyID,
			Reason:    decision.Reason,
			RequestID: decision.RequestID,
		}
	}

	c.putInCache(cacheKey, decision)
	return decision, nil
}

// Check evaluates the request and returns a boolean. Unlike Authorize it does
// not return an error on denial, only on transport or server failures.
func (c *Client) Check(ctx context.Context, req Request) (bool, error) {
	decision, err := c.Authorize(ctx, req)
	if err != nil {
		if errors.Is(err, ErrAccessDenied) {
			return false, nil
		}
		return false, err
	}
	return decision.Allowed, nil
}

// doAuthorize sends the HTTP request to the authorization endpoint.
func (c *Client) doAuthorize(ctx context.Context, req Request) (*Decision, error) {
	url := strings.TrimRight(c.serverAddr, "/") + "/v1/authorize"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: httpResp.StatusCode}
		var wire struct {
			Error     string `json:"error"`
			RequestID string `json:"request_id"`
		}
		if json.Unmarshal(respBody, &wire) == nil {
			apiErr.Message = wire.Error
			apiErr.RequestID = wire.RequestID
		}
		return nil, apiErr
	}

	var decision Decision
	if err := json.Unmarshal(respBody, &decision); err != nil {
		return nil, fmt.Errorf("unmarshal decision: %w", err)
	}
	return &decision, nil
}

// buildCacheKey derives a key from the full request, including resource
// attributes, so attribute changes never reuse a stale decision.
func (c *Client) buildCacheKey(req Request) string {
	h := sha256.New()
	payload, _ := json.Marshal(req)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// getFromCache retrieves a cached decision if present and unexpired.
func (c *Client) getFromCache(key string) (*Decision, bool) {
	if c.cacheTTL <= 0 {
		return nil, false
	}
	val, ok := c.cache.Load(key)
	if !ok {
		return nil, false
	}
	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.cache.Delete(key)
		c.cacheMu.Lock()
		c.cacheCount--
		c.cacheMu.Unlock()
		return nil, false
	}
	return entry.decision, true
}

// putInCache stores an allowed decision.
func (c *Client) putInCache(key string, decision *Decision) {
	if c.cacheTTL <= 0 {
		return
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	// Best-effort eviction: drop expired entries first, then the oldest.
	if c.cacheCount >= int64(c.cacheMaxSize) {
		now := time.Now()
		evicted := 0
		c.cache.Range(func(k, v any) bool {
			entry := v.(*cacheEntry)
			if now.After(entry.expiresAt) {
				c.cache.Delete(k)
				evicted++
			}
			return evicted < 100
		})
		c.cacheCount -= int64(evicted)

		if c.cacheCount >= int64(c.cacheMaxSize) {
			var oldest time.Time
			var oldestKey any
			c.cache.Range(func(k, v any) bool {
				entry := v.(*cacheEntry)
				if oldest.IsZero() || entry.createdAt.Before(oldest) {
					oldest = entry.createdAt
					oldestKey = k
				}
				return true
			})
			if oldestKey != nil {
				c.cache.Delete(oldestKey)
				c.cacheCount--
			}
		}
	}

	c.cache.Store(key, &cacheEntry{
		decision:  decision,
		expiresAt: time.Now().Add(c.cacheTTL),
		createdAt: time.Now(),
	})
	c.cacheCount++
}

// isConnectionError reports whether err is a connection-level failure.
// HTTP-level errors from the server are not connection errors.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	// Everything else from http.Client.Do is a connection error
	// (DNS, connection refused, TLS handshake, timeout).
	return true
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}

func parseIntEnv(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return defaultVal
}
