package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	celeval "github.com/expert-ai/cedar/internal/adapter/outbound/cel"
	"github.com/expert-ai/cedar/internal/domain/authz"
)

// lruEntry is a doubly-linked list node for the LRU cache.
type lruEntry struct {
	key      uint64
	decision authz.Decision
	prev     *lruEntry
	next     *lruEntry
}

// ResultCache provides bounded LRU caching for decision results.
// Thread-safe with Mutex (both Get and Put mutate LRU order).
type ResultCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry // most recently used
	tail    *lruEntry // least recently used
	maxSize int
}

// NewResultCache creates a new LRU cache with the given max size.
func NewResultCache(maxSize int) *ResultCache {
	return &ResultCache{
		entries: make(map[uint64]*lruEntry, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a cached decision. Returns (decision, true) on hit.
// On hit, the entry is promoted to the head (most recently used).
func (c *ResultCache) Get(key uint64) (authz.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.moveToHeadLocked(e)
		return e.decision, true
	}
	return authz.Decision{}, false
}

// Put stores a decision. If at capacity, the least recently used entry is evicted.
func (c *ResultCache) Put(key uint64, decision authz.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.decision = decision
		c.moveToHeadLocked(e)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}

	e := &lruEntry{key: key, decision: decision}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Size returns current cache size.
func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// moveToHeadLocked moves an existing entry to the head. Must be called with lock held.
func (c *ResultCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

// pushHeadLocked inserts an entry at the head. Must be called with lock held.
func (c *ResultCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

// unlinkLocked removes an entry from the linked list. Must be called with lock held.
func (c *ResultCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

// evictTailLocked removes the least recently used entry. Must be called with lock held.
func (c *ResultCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// computeCacheKey generates a unique hash for an authorization request.
// Roles and memberships are sorted for determinism; attributes are hashed
// as canonical JSON.
func computeCacheKey(req authz.Request) uint64 {
	h := xxhash.New()

	_, _ = h.WriteString(string(req.Principal.Type))
	_, _ = h.Write([]byte{0}) // separator
	_, _ = h.WriteString(req.Principal.ID)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(strconv.FormatBool(req.Principal.IsAuthenticated))
	_, _ = h.Write([]byte{0})

	rolePairs := make([]string, 0, len(req.Principal.Roles))
	for orgID, role := range req.Principal.Roles {
		rolePairs = append(rolePairs, orgID+"="+string(role))
	}
	sort.Strings(rolePairs)
	for _, pair := range rolePairs {
		_, _ = h.WriteString(pair)
		_, _ = h.Write([]byte{0})
	}

	memberships := make([]string, len(req.Principal.MembershipOrgIDs))
	copy(memberships, req.Principal.MembershipOrgIDs)
	sort.Strings(memberships)
	for _, orgID := range memberships {
		_, _ = h.WriteString(orgID)
		_, _ = h.Write([]byte{0})
	}

	_, _ = h.WriteString(req.Action)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(req.Resource.Type)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(req.Resource.ID)
	_, _ = h.Write([]byte{0})

	if len(req.Resource.Attributes) > 0 {
		attrsJSON, _ := json.Marshal(req.Resource.Attributes)
		_, _ = h.Write(attrsJSON)
	}

	return h.Sum64()
}

// DecisionService implements authz.Engine over an immutable PolicyStore.
// Candidates are evaluated in two passes: forbid policies first (forbid is
// absolute and short-circuits), then permits, with default deny as the
// terminal fallback. Evaluation is pure in-memory computation; the only
// state is the LRU result cache, which is transparent to callers because
// the store never changes after load.
type DecisionService struct {
	store     *PolicyStore
	evaluator *celeval.Evaluator
	cache     *ResultCache
	logger    *slog.Logger
}

// DecisionServiceOption configures DecisionService.
type DecisionServiceOption func(*DecisionService)

// WithCacheSize sets the maximum number of cached decisions.
func WithCacheSize(size int) DecisionServiceOption {
	return func(s *DecisionService) {
		s.cache = NewResultCache(size)
	}
}

// NewDecisionService creates a DecisionService over the given store.
func NewDecisionService(store *PolicyStore, evaluator *celeval.Evaluator, logger *slog.Logger, opts ...DecisionServiceOption) *DecisionService {
	s := &DecisionService{
		store:     store,
		evaluator: evaluator,
		cache:     NewResultCache(1000), // Default 1000 entries
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate returns the allow/deny decision for the request.
//
// Algorithm:
//  1. Look up candidate policies by principal type, action, resource type.
//  2. First pass: forbid policies. Any applicable forbid whose condition
//     holds denies immediately; no permit can override it.
//  3. Second pass: permit policies. The first applicable permit whose
//     condition holds allows.
//  4. Otherwise default deny.
//
// Evaluate never fails for caller-supplied data: a condition that errors at
// runtime (absent attribute, type mismatch) counts as not satisfied, which
// flows to deny.
func (s *DecisionService) Evaluate(ctx context.Context, req authz.Request) authz.Decision {
	cacheKey := computeCacheKey(req)
	if decision, ok := s.cache.Get(cacheKey); ok {
		return decision
	}

	candidates := s.store.PoliciesFor(req.Principal.Type, req.Action, req.Resource.Type)

	// Pass 1: forbid policies. Explicit deny always wins.
	for i := range candidates {
		p := &candidates[i]
		if p.Effect != authz.EffectForbid {
			continue
		}
		if s.policyMatches(p, req) {
			decision := authz.Decision{
				Allowed:  false,
				PolicyID: p.ID,
				Reason:   s.reasonFor(p),
			}
			s.cache.Put(cacheKey, decision)
			return decision
		}
	}

	// Pass 2: permit policies.
	for i := range candidates {
		p := &candidates[i]
		if p.Effect != authz.EffectPermit {
			continue
		}
		if s.policyMatches(p, req) {
			decision := authz.Decision{
				Allowed:  true,
				PolicyID: p.ID,
				Reason:   s.reasonFor(p),
			}
			s.cache.Put(cacheKey, decision)
			return decision
		}
	}

	decision := authz.Decision{
		Allowed: false,
		Reason:  authz.DefaultDenyReason,
	}
	s.cache.Put(cacheKey, decision)
	return decision
}

// policyMatches reports whether the policy's id pins and condition hold for
// the request. Condition evaluation errors count as not satisfied.
func (s *DecisionService) policyMatches(p *CompiledPolicy, req authz.Request) bool {
	if !p.MatchesIDs(req.Principal.ID, req.Resource.ID) {
		return false
	}
	if p.Program == nil {
		return true
	}
	result, err := s.evaluator.Evaluate(p.Program, req)
	if err != nil {
		// Absent attributes and type mismatches surface here; the request
		// simply does not satisfy the condition.
		s.logger.Debug("condition not satisfiable",
			"policy", p.ID,
			"action", req.Action,
			"error", err,
		)
		return false
	}
	return result
}

// reasonFor returns the human-readable reason for a matched policy.
func (s *DecisionService) reasonFor(p *CompiledPolicy) string {
	if p.Description != "" {
		return p.Description
	}
	return fmt.Sprintf("matched policy %s", p.ID)
}

// CacheSize returns the current number of cached decisions (for monitoring).
func (s *DecisionService) CacheSize() int {
	return s.cache.Size()
}

// Compile-time interface verification.
var _ authz.Engine = (*DecisionService)(nil)
