package audit

import "context"

// AuditStore persists decision records.
// Interface owned by domain per hexagonal architecture.
// Implementations handle batching and async writes.
type AuditStore interface {
	// Append stores decision records. Must be non-blocking from the
	// caller's perspective.
	Append(ctx context.Context, records ...DecisionRecord) error

	// Flush forces pending records to storage. Called during shutdown.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}
