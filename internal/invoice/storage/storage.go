// Package storage persists invoice collections as opaque JSON blobs, one blob
// per key, over an embedded bolt file or a SQL table.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/invoice-management/internal"
)

// ErrBlobNotFound is returned by BlobStore.Get when nothing is stored under the key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is a key/value backend for serialized collections.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(cfg internal.StorageConfig, logger *slog.Logger) (BlobStore, error) {
	switch cfg.Driver {
	case internal.StorageDriverBolt:
		return NewBoltStore(cfg.Path, cfg.Bucket, cfg.OpenTimeout)
	case internal.StorageDriverSQLite, internal.StorageDriverPostgres:
		db, err := OpenGorm(cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// KeyForUser returns the blob key holding the collection of userID.
func KeyForUser(userID string) string {
	return "invoices/" + userID
}
