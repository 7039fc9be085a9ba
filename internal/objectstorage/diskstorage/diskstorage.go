// Package diskstorage keeps objects as files below a root directory.
// It is meant for local development and single-node deployments.
package diskstorage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/patric-chuzhbe/jobtracker/internal/objectstorage"
)

// ErrInvalidKey is returned for keys that would resolve outside the root.
var ErrInvalidKey = errors.New("invalid object key")

type DiskStorage struct {
	root string
}

// New creates the root directory when it does not exist yet.
func New(root string) (*DiskStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("in internal/objectstorage/diskstorage/diskstorage.go/New(): error while `os.MkdirAll()` calling: %w", err)
	}

	return &DiskStorage{root: root}, nil
}

func (s *DiskStorage) Put(ctx context.Context, key string, data []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func (s *DiskStorage) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, objectstorage.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

func (s *DiskStorage) pathFor(key string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(key))
	if cleaned == string(filepath.Separator) || strings.HasSuffix(key, "/") {
		return "", ErrInvalidKey
	}

	return filepath.Join(s.root, cleaned), nil
}
