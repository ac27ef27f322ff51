package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps files in a directory on the local file system
type LocalStore struct {
	basePath string
}

// NewLocalStore creates the base directory if needed
func NewLocalStore(basePath string) (*LocalStore, error) {
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create %s: %w", basePath, err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Save writes to a temporary file and renames it so readers never see a partial PDF
func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, "."+name+".*")
	if err != nil {
		return fmt.Errorf("storage: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		return fmt.Errorf("storage: failed to store %s: %w", name, err)
	}
	return nil
}

// Open opens a stored file
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %s: %w", name, err)
	}
	return f, nil
}

// Exists reports whether a regular file is stored under name
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: failed to stat %s: %w", name, err)
	}
	return info.Mode().IsRegular(), nil
}

// Delete removes a stored file
func (s *LocalStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: failed to delete %s: %w", name, err)
	}
	return nil
}

// BasePath returns the directory files are stored in
func (s *LocalStore) BasePath() string {
	return s.basePath
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.basePath, name)
}

var _ FileStore = (*LocalStore)(nil)
