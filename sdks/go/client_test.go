package cedar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func allowServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path != "/v1/authorize" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Decision{
			Allowed:   true,
			PolicyID:  "public-agent-read",
			Reason:    "public agents are readable",
			RequestID: "req-1",
		})
	}))
}

func testRequest() Request {
	return Request{
		Principal: Principal{Type: "User", ID: "user-1", Roles: map[string]string{"org-1": "ADMIN"}},
		Action:    "GetAgent",
		Resource:  Resource{Type: "Agent", ID: "agent-1"},
	}
}

func TestAuthorizeAllow(t *testing.T) {
	srv := allowServer(t, nil)
	defer srv.Close()

	client := NewClient(WithServerAddr(srv.URL))
	decision, err := client.Authorize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Authorize error: %v", err)
	}
	if !decision.Allowed || decision.PolicyID != "public-agent-read" {
		t.Errorf("decision = %+v", decision)
	}
}

func TestAuthorizeDeny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Decision{
			Allowed:   false,
			PolicyID:  "tenant-isolation",
			Reason:    "resource restricted to other orgs",
			RequestID: "req-2",
		})
	}))
	defer srv.Close()

	client := NewClient(WithServerAddr(srv.URL))
	decision, err := client.Authorize(context.Background(), testRequest())
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *AccessDeniedError, got %T", err)
	}
	if denied.PolicyID != "tenant-isolation" {
		t.Errorf("PolicyID = %q", denied.PolicyID)
	}
	// The decision is returned alongside the error for callers that want
	// the full detail.
	if decision == nil || decision.Allowed {
		t.Errorf("decision = %+v", decision)
	}
}

func TestCheck(t *testing.T) {
	denyNext := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Decision{Allowed: !denyNext, Reason: "x"})
	}))
	defer srv.Close()

	client := NewClient(WithServerAddr(srv.URL), WithCacheTTL(0))

	ok, err := client.Check(context.Background(), testRequest())
	if err != nil || !ok {
		t.Errorf("Check = %v, %v; want true, nil", ok, err)
	}

	denyNext = true
	ok, err = client.Check(context.Background(), testRequest())
	if err != nil || ok {
		t.Errorf("Check = %v, %v; want false, nil", ok, err)
	}
}

func TestAuthorizeCachesAllows(t *testing.T) {
	var hits atomic.Int64
	srv := allowServer(t, &hits)
	defer srv.Close()

	client := NewClient(WithServerAddr(srv.URL), WithCacheTTL(time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := client.Authorize(context.Background(), testRequest()); err != nil {
			t.Fatalf("Authorize error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (cached)", hits.Load())
	}

	// A different resource misses the cache.
	other := testRequest()
	other.Resource.ID = "agent-2"
	if _, err := client.Authorize(context.Background(), other); err != nil {
		t.Fatalf("Authorize error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestAuthorizeDoesNotCacheDenies(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(Decision{Allowed: false, Reason: "denied"})
	}))
	defer srv.Close()

	client := NewClient(WithServerAddr(srv.URL), WithCacheTTL(time.Minute))
	for i := 0; i < 3; i++ {
		_, _ = client.Authorize(context.Background(), testRequest())
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3 (denies bypass the cache)", hits.Load())
	}
}

func TestAuthorizeFailClosed(t *testing.T) {
	client := NewClient(
		WithServerAddr("http://127.0.0.1:1"), // nothing listens here
		WithTimeout(200*time.Millisecond),
	)

	_, err := client.Authorize(context.Background(), testRequest())
	if !errors.Is(err, ErrServerUnreachable) {
		t.Errorf("expected ErrServerUnreachable with default fail mode, got %v", err)
	}
}

func TestAuthorizeFailOpen(t *testing.T) {
	client := NewClient(
		WithServerAddr("http://127.0.0.1:1"),
		WithTimeout(200*time.Millisecond),
		WithFailMode("open"),
	)

	decision, err := client.Authorize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Authorize error: %v", err)
	}
	if !decision.Allowed {
		t.Error("fail-open must return allow")
	}
}

func TestAuthorizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"action is required","request_id":"req-9"}`))
	}))
	defer srv.Close()

	client := NewClient(WithServerAddr(srv.URL))
	_, err := client.Authorize(context.Background(), Request{Resource: Resource{Type: "Agent"}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "action is required" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if errors.Is(err, ErrServerUnreachable) {
		t.Error("HTTP errors are not connection errors")
	}
}

func TestDefaultPrincipal(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(Decision{Allowed: true, Reason: "ok"})
	}))
	defer srv.Close()

	client := NewClient(
		WithServerAddr(srv.URL),
		WithDefaultPrincipal(Principal{Type: "Service", ID: "scheduler"}),
		WithCacheTTL(0),
	)
	if _, err := client.Authorize(context.Background(), Request{
		Action:   "TriggerSummarization",
		Resource: Resource{Type: "Agent", ID: "agent-1"},
	}); err != nil {
		t.Fatalf("Authorize error: %v", err)
	}
	if got.Principal.Type != "Service" || got.Principal.ID != "scheduler" {
		t.Errorf("principal sent = %+v", got.Principal)
	}
}
