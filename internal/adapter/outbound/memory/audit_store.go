package memory

import (
	"context"
	"sync"

	"github.com/expert-ai/cedar/internal/domain/audit"
)

// MemoryAuditStore implements audit.AuditStore with a bounded ring buffer.
// It backs the /v1/decisions recent-decision view and tests; durable audit
// output goes through the file store.
type MemoryAuditStore struct {
	mu      sync.RWMutex
	records []audit.DecisionRecord
	next    int
	full    bool
}

// NewAuditStore creates a ring-buffer audit store holding up to size records.
func NewAuditStore(size int) *MemoryAuditStore {
	if size <= 0 {
		size = 1000
	}
	return &MemoryAuditStore{
		records: make([]audit.DecisionRecord, size),
	}
}

// Append stores records, overwriting the oldest once the buffer is full.
func (s *MemoryAuditStore) Append(_ context.Context, records ...audit.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.records[s.next] = r
		s.next++
		if s.next == len(s.records) {
			s.next = 0
			s.full = true
		}
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *MemoryAuditStore) Recent(n int) []audit.DecisionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.next
	if s.full {
		count = len(s.records)
	}
	if n > count {
		n = count
	}
	out := make([]audit.DecisionRecord, 0, n)
	idx := s.next - 1
	for len(out) < n {
		if idx < 0 {
			idx = len(s.records) - 1
		}
		out = append(out, s.records[idx])
		idx--
	}
	return out
}

// Len returns the number of records currently held.
func (s *MemoryAuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.records)
	}
	return s.next
}

// Flush is a no-op for the in-memory store.
func (s *MemoryAuditStore) Flush(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryAuditStore) Close() error { return nil }

// Compile-time interface verification.
var _ audit.AuditStore = (*MemoryAuditStore)(nil)
