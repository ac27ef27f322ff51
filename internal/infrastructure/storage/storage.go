// Package storage keeps generated receipt files on the local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/optica/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no file is stored under a name
var ErrNotFound = errors.New("storage: file not found")

// FileStore stores flat, named files such as factura-42.pdf
type FileStore interface {
	// Save stores data under name, replacing any previous file
	Save(ctx context.Context, name string, data []byte, contentType string) error
	// Open returns the stored file; the caller closes it
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Exists reports whether a file is stored under name
	Exists(ctx context.Context, name string) (bool, error)
	// Delete removes the file; deleting a missing file is not an error
	Delete(ctx context.Context, name string) error
}

// New creates the file store selected by the configuration
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (FileStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.BasePath)
	case "s3":
		s, err := NewS3Store(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// ValidateName rejects names that are empty or could escape the store root
func ValidateName(name string) error {
	if name == "" {
		return errors.New("storage: file name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || path.Clean(name) != name {
		return fmt.Errorf("storage: invalid file name %q", name)
	}
	return nil
}
