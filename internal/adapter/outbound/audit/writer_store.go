// Package audit provides JSON Lines audit persistence to stdout or a file.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/expert-ai/cedar/internal/domain/audit"
)

// Output destinations accepted by NewWriterStore.
const (
	// OutputStdout writes records to standard output.
	OutputStdout = "stdout"
	// filePrefix marks a file destination: "file:///var/log/cedar/audit.log".
	filePrefix = "file://"
)

// WriterStore implements audit.AuditStore by appending JSON Lines to stdout
// or a file. Batching and backpressure live in the AuditService; this store
// only serializes and writes.
type WriterStore struct {
	mu     sync.Mutex
	w      *bufio.Writer
	file   *os.File // nil for stdout
	logger *slog.Logger
	closed bool
}

// NewWriterStore creates a store for the given output destination.
// Valid destinations: "stdout" or "file://<absolute-path>". The file is
// opened in append mode with restricted permissions.
func NewWriterStore(output string, logger *slog.Logger) (*WriterStore, error) {
	if output == "" || output == OutputStdout {
		return &WriterStore{
			w:      bufio.NewWriter(os.Stdout),
			logger: logger,
		}, nil
	}

	if !strings.HasPrefix(output, filePrefix) {
		return nil, fmt.Errorf("invalid audit output %q: must be %q or %q<absolute-path>", output, OutputStdout, filePrefix)
	}

	path := strings.TrimPrefix(output, filePrefix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	return &WriterStore{
		w:      bufio.NewWriter(f),
		file:   f,
		logger: logger,
	}, nil
}

// Append serializes records as JSON Lines and writes them.
func (s *WriterStore) Append(_ context.Context, records ...audit.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("audit store is closed")
	}

	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			// A record that cannot be serialized is logged and skipped;
			// it must not block the rest of the batch.
			s.logger.Error("failed to marshal audit record", "error", err, "request_id", r.RequestID)
			continue
		}
		if _, err := s.w.Write(line); err != nil {
			return fmt.Errorf("write audit record: %w", err)
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write audit record: %w", err)
		}
	}
	return s.w.Flush()
}

// Flush forces buffered records to the destination.
func (s *WriterStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.w.Flush()
}

// Close flushes and releases the underlying file (if any).
func (s *WriterStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Compile-time interface verification.
var _ audit.AuditStore = (*WriterStore)(nil)
