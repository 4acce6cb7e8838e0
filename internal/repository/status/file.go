package status

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/aliskhannn/media-uniquer/internal/model"
	"github.com/aliskhannn/media-uniquer/internal/storage/file"
)

// FileStore keeps one JSON document per task in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create status dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Put writes the record through a temp file and a rename.
func (s *FileStore) Put(_ context.Context, id string, st model.Status) error {
	if !model.ValidTaskID(id) {
		return fmt.Errorf("put: invalid task id %q", id)
	}

	data, err := encode(st)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}

	if err := file.WriteAtomic(s.path(id), data); err != nil {
		return fmt.Errorf("put: failed to write status: %w", err)
	}

	return nil
}

// Get reads the record for id.
func (s *FileStore) Get(_ context.Context, id string) (model.Status, error) {
	if !model.ValidTaskID(id) {
		return model.Status{}, ErrStatusNotFound
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Status{}, ErrStatusNotFound
		}
		return model.Status{}, fmt.Errorf("get: failed to read status: %w", err)
	}

	st, err := decode(data)
	if err != nil {
		return model.Status{}, fmt.Errorf("get: %w", err)
	}

	return st, nil
}

// Delete removes the record for id.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if !model.ValidTaskID(id) {
		return ErrStatusNotFound
	}

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrStatusNotFound
		}
		return fmt.Errorf("delete: failed to remove status: %w", err)
	}

	return nil
}

// Expire removes records whose file was last written before cutoff.
func (s *FileStore) Expire(_ context.Context, cutoff time.Time) (int, error) {
	res, err := file.ExpireDir(s.dir, cutoff)
	return res.Removed, err
}

func (s *FileStore) Close() error { return nil }
