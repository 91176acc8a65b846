package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/expert-ai/cedar/internal/domain/audit"
)

// mockAuditStore collects appended records and can simulate slow writes.
type mockAuditStore struct {
	mu      sync.Mutex
	records []audit.DecisionRecord
	delay   time.Duration
}

func (m *mockAuditStore) Append(_ context.Context, records ...audit.DecisionRecord) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *mockAuditStore) Flush(context.Context) error { return nil }
func (m *mockAuditStore) Close() error                { return nil }

func (m *mockAuditStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func testRecord(action string) audit.DecisionRecord {
	return audit.DecisionRecord{
		Timestamp:     time.Now().UTC(),
		PrincipalID:   "user-1",
		PrincipalType: "User",
		Action:        action,
		ResourceType:  "Agent",
		Decision:      audit.DecisionAllow,
		PolicyID:      "authenticated-agent-access",
	}
}

func TestAuditServiceFlushOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockAuditStore{}
	svc := NewAuditService(store, testLogger(),
		WithChannelSize(100),
		WithBatchSize(50),
		WithFlushInterval(time.Hour), // only Stop should flush
	)
	svc.Start(context.Background())

	for i := 0; i < 10; i++ {
		svc.Record(testRecord("QueryAgent"))
	}
	svc.Stop()

	if got := store.count(); got != 10 {
		t.Errorf("store received %d records, want 10", got)
	}
	if drops := svc.DroppedRecords(); drops != 0 {
		t.Errorf("DroppedRecords() = %d, want 0", drops)
	}
}

func TestAuditServiceBatchFlush(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockAuditStore{}
	svc := NewAuditService(store, testLogger(),
		WithChannelSize(100),
		WithBatchSize(5),
		WithFlushInterval(time.Hour),
	)
	svc.Start(context.Background())

	for i := 0; i < 5; i++ {
		svc.Record(testRecord("GetAgent"))
	}

	// Batch threshold reached; the worker should flush without Stop.
	deadline := time.After(2 * time.Second)
	for store.count() < 5 {
		select {
		case <-deadline:
			t.Fatalf("batch not flushed, store has %d records", store.count())
		case <-time.After(10 * time.Millisecond):
		}
	}
	svc.Stop()
}

func TestAuditServicePeriodicFlush(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockAuditStore{}
	svc := NewAuditService(store, testLogger(),
		WithChannelSize(100),
		WithBatchSize(1000), // never reached
		WithFlushInterval(20*time.Millisecond),
	)
	svc.Start(context.Background())

	svc.Record(testRecord("UploadFile"))

	deadline := time.After(2 * time.Second)
	for store.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("periodic flush did not fire")
		case <-time.After(10 * time.Millisecond):
		}
	}
	svc.Stop()
}

func TestAuditServiceDropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Slow store plus a tiny channel and zero send timeout: overflow records
	// are dropped instead of blocking the caller.
	store := &mockAuditStore{delay: 50 * time.Millisecond}
	svc := NewAuditService(store, testLogger(),
		WithChannelSize(2),
		WithBatchSize(1),
		WithFlushInterval(time.Hour),
		WithSendTimeout(0),
		WithWarningThreshold(0),
	)
	svc.Start(context.Background())

	start := time.Now()
	for i := 0; i < 20; i++ {
		svc.Record(testRecord("QueryAgent"))
	}
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("Record blocked for %v with zero send timeout", elapsed)
	}
	svc.Stop()

	drops := svc.DroppedRecords()
	if drops == 0 {
		t.Error("expected drops with a full channel and slow store")
	}
	if int64(store.count())+drops != 20 {
		t.Errorf("stored %d + dropped %d != 20 sent", store.count(), drops)
	}
}

func TestAuditServiceBackpressureWaits(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockAuditStore{}
	svc := NewAuditService(store, testLogger(),
		WithChannelSize(1),
		WithBatchSize(100),
		WithFlushInterval(10*time.Millisecond),
		WithSendTimeout(500*time.Millisecond),
		WithWarningThreshold(0),
	)
	svc.Start(context.Background())

	// The worker drains at flush-interval pace, so a generous send timeout
	// means nothing gets dropped.
	for i := 0; i < 10; i++ {
		svc.Record(testRecord("GetAgent"))
	}
	svc.Stop()

	if drops := svc.DroppedRecords(); drops != 0 {
		t.Errorf("DroppedRecords() = %d, want 0", drops)
	}
	if got := store.count(); got != 10 {
		t.Errorf("store received %d records, want 10", got)
	}
}

func TestAuditServiceChannelMonitoring(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockAuditStore{}
	svc := NewAuditService(store, testLogger(), WithChannelSize(42))

	if got := svc.ChannelCapacity(); got != 42 {
		t.Errorf("ChannelCapacity() = %d, want 42", got)
	}
	if got := svc.ChannelDepth(); got != 0 {
		t.Errorf("ChannelDepth() = %d, want 0", got)
	}

	// Not started: records queue in the channel.
	svc.Record(testRecord("GetAgent"))
	if got := svc.ChannelDepth(); got != 1 {
		t.Errorf("ChannelDepth() = %d, want 1", got)
	}

	svc.Start(context.Background())
	svc.Stop()
}

func TestAuditServiceContextCancelDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockAuditStore{}
	svc := NewAuditService(store, testLogger(),
		WithChannelSize(100),
		WithBatchSize(1000),
		WithFlushInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	for i := 0; i < 7; i++ {
		svc.Record(testRecord("DeleteFile"))
	}
	cancel()

	// Worker exits via ctx.Done and drains the channel after close.
	svc.Stop()

	if got := store.count(); got != 7 {
		t.Errorf("store received %d records, want 7", got)
	}
}
