package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/expert-ai/cedar/internal/domain/audit"
)

func appendN(t *testing.T, store *MemoryAuditStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.Append(context.Background(), audit.DecisionRecord{
			RequestID: fmt.Sprintf("req-%d", i),
			Action:    "GetAgent",
		})
		if err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
}

func TestAuditStoreRecentNewestFirst(t *testing.T) {
	store := NewAuditStore(10)
	appendN(t, store, 3)

	got := store.Recent(10)
	if len(got) != 3 {
		t.Fatalf("Recent returned %d records, want 3", len(got))
	}
	for i, want := range []string{"req-2", "req-1", "req-0"} {
		if got[i].RequestID != want {
			t.Errorf("Recent[%d] = %s, want %s", i, got[i].RequestID, want)
		}
	}
}

func TestAuditStoreOverwritesOldest(t *testing.T) {
	store := NewAuditStore(4)
	appendN(t, store, 6) // req-0 and req-1 overwritten

	if store.Len() != 4 {
		t.Errorf("Len() = %d, want 4", store.Len())
	}

	got := store.Recent(10)
	if len(got) != 4 {
		t.Fatalf("Recent returned %d records, want 4", len(got))
	}
	for i, want := range []string{"req-5", "req-4", "req-3", "req-2"} {
		if got[i].RequestID != want {
			t.Errorf("Recent[%d] = %s, want %s", i, got[i].RequestID, want)
		}
	}
}

func TestAuditStoreRecentLimit(t *testing.T) {
	store := NewAuditStore(10)
	appendN(t, store, 5)

	got := store.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(got))
	}
	if got[0].RequestID != "req-4" || got[1].RequestID != "req-3" {
		t.Errorf("Recent(2) = [%s %s]", got[0].RequestID, got[1].RequestID)
	}
}

func TestAuditStoreEmpty(t *testing.T) {
	store := NewAuditStore(10)
	if got := store.Recent(5); len(got) != 0 {
		t.Errorf("Recent on empty store returned %d records", len(got))
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestAuditStoreBatchAppendAcrossWrap(t *testing.T) {
	store := NewAuditStore(3)

	var batch []audit.DecisionRecord
	for i := 0; i < 5; i++ {
		batch = append(batch, audit.DecisionRecord{RequestID: fmt.Sprintf("req-%d", i)})
	}
	if err := store.Append(context.Background(), batch...); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	got := store.Recent(3)
	for i, want := range []string{"req-4", "req-3", "req-2"} {
		if got[i].RequestID != want {
			t.Errorf("Recent[%d] = %s, want %s", i, got[i].RequestID, want)
		}
	}
}
