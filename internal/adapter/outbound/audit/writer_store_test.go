package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domaudit "github.com/expert-ai/cedar/internal/domain/audit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriterStoreFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	store, err := NewWriterStore("file://"+path, testLogger())
	if err != nil {
		t.Fatalf("NewWriterStore error: %v", err)
	}

	records := []domaudit.DecisionRecord{
		{
			Timestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			RequestID:     "req-1",
			PrincipalID:   "user-1",
			PrincipalType: "User",
			Action:        "GetAgent",
			ResourceType:  "Agent",
			ResourceID:    "agent-1",
			Decision:      domaudit.DecisionAllow,
			PolicyID:      "authenticated-agent-access",
		},
		{
			Timestamp:     time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC),
			RequestID:     "req-2",
			PrincipalID:   "anonymous",
			PrincipalType: "Anonymous",
			Action:        "ManageOrg",
			ResourceType:  "Org",
			Decision:      domaudit.DecisionDeny,
			Reason:        "no matching policy (default deny)",
		},
	}
	if err := store.Append(context.Background(), records...); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var got []domaudit.DecisionRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r domaudit.DecisionRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("read %d lines, want 2", len(got))
	}
	if got[0].RequestID != "req-1" || got[0].Decision != domaudit.DecisionAllow || got[0].PolicyID != "authenticated-agent-access" {
		t.Errorf("line 0 = %+v", got[0])
	}
	if got[1].Decision != domaudit.DecisionDeny || got[1].Reason != "no matching policy (default deny)" {
		t.Errorf("line 1 = %+v", got[1])
	}
}

func TestWriterStoreAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	for i := 0; i < 2; i++ {
		store, err := NewWriterStore("file://"+path, testLogger())
		if err != nil {
			t.Fatalf("NewWriterStore error: %v", err)
		}
		if err := store.Append(context.Background(), domaudit.DecisionRecord{RequestID: "req"}); err != nil {
			t.Fatalf("Append error: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close error: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("got %d lines after reopen, want 2", lines)
	}
}

func TestWriterStoreInvalidOutput(t *testing.T) {
	for _, output := range []string{"syslog", "http://example.com", "file"} {
		if _, err := NewWriterStore(output, testLogger()); err == nil {
			t.Errorf("NewWriterStore(%q) expected error", output)
		}
	}
}

func TestWriterStoreAppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	store, err := NewWriterStore("file://"+path, testLogger())
	if err != nil {
		t.Fatalf("NewWriterStore error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := store.Append(context.Background(), domaudit.DecisionRecord{}); err == nil {
		t.Error("expected error appending to closed store")
	}
	// Idempotent
	if err := store.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
}
