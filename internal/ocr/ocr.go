// Package ocr turns uploaded invoice documents into plain text through an
// external recognition service.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
)

// Extractor returns the raw text of a document.
type Extractor interface {
	ExtractText(ctx context.Context, file attachment.File) (string, error)
}

var (
	ErrEmptyDocument       = errors.New("document contains no readable text")
	ErrUnsupportedDocument = errors.New("document type is not supported by the extractor")
	ErrServiceFailed       = errors.New("extraction service failed")
	ErrMissingCredentials  = errors.New("missing Google Cloud credentials")
)

// ExtractionError records which step of an extraction failed.
type ExtractionError struct {
	Op      string
	Err     error
	Details string
}

func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *ExtractionError unless it already is one.
func Wrap(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err
	}
	return &ExtractionError{Op: op, Err: err, Details: details}
}

// New builds the extractor named by cfg.Provider. The returned close function
// releases any client connection and is never nil.
func New(ctx context.Context, cfg internal.ExtractionConfig, logger *slog.Logger) (Extractor, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.Provider {
	case internal.ExtractionProviderVision:
		ex, err := NewVisionExtractor(ctx, cfg)
		if err != nil {
			return nil, noClose, err
		}
		return ex, ex.Close, nil
	case internal.ExtractionProviderDocumentAI:
		ex, err := NewDocumentAIExtractor(ctx, cfg)
		if err != nil {
			return nil, noClose, err
		}
		return ex, ex.Close, nil
	case internal.ExtractionProviderHTTP:
		return NewHTTPExtractor(cfg.Endpoint, cfg.APIKey, cfg.Timeout), noClose, nil
	case internal.ExtractionProviderNone, "":
		logger.Info("text extraction disabled")
		return NoopExtractor{}, noClose, nil
	default:
		return nil, noClose, fmt.Errorf("unknown extraction provider %q", cfg.Provider)
	}
}

// NoopExtractor extracts nothing.
type NoopExtractor struct{}

func (NoopExtractor) ExtractText(context.Context, attachment.File) (string, error) {
	return "", nil
}
