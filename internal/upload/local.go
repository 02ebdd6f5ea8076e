package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
)

// LocalStorage writes objects below a directory, for development. The
// directory is served by the HTTP server under the public base URL.
type LocalStorage struct {
	dir       string
	publicURL string
}

func NewLocalStorage(dir, publicBaseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir, publicURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Save(ctx context.Context, path string, file attachment.File, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean("/" + path)
	if clean == "/" || strings.Contains(path, "..") {
		return nil, ErrInvalidPath
	}
	target := filepath.Join(s.dir, filepath.FromSlash(clean))

	if !opts.Upsert {
		if _, err := os.Stat(target); err == nil {
			return nil, ErrAlreadyExists
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(target, file.Content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	rel := strings.TrimPrefix(filepath.ToSlash(clean), "/")
	return &Result{Path: rel, PublicURL: s.publicURL + "/" + escapePath(rel)}, nil
}
