package audit

import (
	"context"
	"errors"

	"github.com/expert-ai/cedar/internal/domain/audit"
)

// TeeStore fans records out to multiple stores. Used to keep a durable JSONL
// trail while also feeding the in-memory ring buffer behind /v1/decisions.
type TeeStore struct {
	stores []audit.AuditStore
}

// NewTeeStore creates a store that writes every record to all given stores.
func NewTeeStore(stores ...audit.AuditStore) *TeeStore {
	return &TeeStore{stores: stores}
}

// Append writes the records to every store. All stores are attempted even
// when one fails; errors are joined.
func (t *TeeStore) Append(ctx context.Context, records ...audit.DecisionRecord) error {
	var errs []error
	for _, s := range t.stores {
		if err := s.Append(ctx, records...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every store.
func (t *TeeStore) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range t.stores {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every store.
func (t *TeeStore) Close() error {
	var errs []error
	for _, s := range t.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Compile-time interface verification.
var _ audit.AuditStore = (*TeeStore)(nil)
