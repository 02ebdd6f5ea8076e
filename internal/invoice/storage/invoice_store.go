package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	invoiceDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
)

// InvoiceStore reads and writes a whole invoice collection under one key.
// There is no merging: Save overwrites whatever was stored before.
type InvoiceStore struct {
	blobs  BlobStore
	key    string
	logger *slog.Logger
}

func NewInvoiceStore(blobs BlobStore, key string, logger *slog.Logger) *InvoiceStore {
	return &InvoiceStore{blobs: blobs, key: key, logger: logger}
}

func (s *InvoiceStore) Key() string {
	return s.key
}

// Load returns the stored collection. A missing key or an unparsable blob
// yields an empty collection; only backend failures are returned as errors.
func (s *InvoiceStore) Load(ctx context.Context) ([]*invoiceDatamodel.Invoice, error) {
	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return []*invoiceDatamodel.Invoice{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}

	if len(data) == 0 {
		return []*invoiceDatamodel.Invoice{}, nil
	}

	var invoices []*invoiceDatamodel.Invoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		s.logger.Warn("stored invoice collection is unreadable, starting empty",
			"key", s.key,
			"error", err)
		return []*invoiceDatamodel.Invoice{}, nil
	}

	if invoices == nil {
		invoices = []*invoiceDatamodel.Invoice{}
	}
	return invoices, nil
}

func (s *InvoiceStore) Save(ctx context.Context, invoices []*invoiceDatamodel.Invoice) error {
	if invoices == nil {
		invoices = []*invoiceDatamodel.Invoice{}
	}
	data, err := json.Marshal(invoices)
	if err != nil {
		return fmt.Errorf("failed to encode invoices: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}
