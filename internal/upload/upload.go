// Package upload stores invoice documents in an external object store and
// returns their public URLs.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
)

var (
	ErrAlreadyExists = errors.New("object already exists")
	ErrInvalidPath   = errors.New("invalid object path")
)

type Options struct {
	// Upsert replaces an existing object at the same path.
	Upsert bool
}

type Result struct {
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
}

type Storage interface {
	Save(ctx context.Context, path string, file attachment.File, opts Options) (*Result, error)
}

func New(cfg internal.UploadConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Driver {
	case internal.UploadDriverHTTP:
		return NewHTTPStorage(cfg.BaseURL, cfg.Bucket, cfg.APIKey, cfg.Timeout), nil
	case internal.UploadDriverLocal, "":
		logger.Info("storing uploads on local disk", "dir", cfg.LocalDir)
		return NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
	}
}
