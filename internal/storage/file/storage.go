package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/wb-go/wbf/zlog"
)

// Storage provides a simple file-based storage backend.
// Each area (uploads, processed, statuses) is a plain directory.
type Storage struct {
	dirs []string
}

// NewStorage creates a new Storage for the given area directories.
func NewStorage(dirs ...string) *Storage {
	return &Storage{dirs: dirs}
}

// Init creates every area directory that does not exist yet.
func (s *Storage) Init() error {
	for _, dir := range s.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Save stores src in dir under filename and returns the resulting path.
// A partially written file is removed on failure.
func (s *Storage) Save(dir, filename string, src io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dstPath := filepath.Join(dir, filename)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to close file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Open opens the file at path for reading.
func (s *Storage) Open(path string) (*os.File, error) {
	return os.Open(path)
}

// WriteAtomic replaces the file at path with data. Readers observe either
// the previous content or the new content, never a partial write. The data
// is flushed to disk before the rename.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Persist the rename itself.
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}

	return nil
}

// ExpireResult counts the outcome of one directory sweep.
type ExpireResult struct {
	Removed int
	Failed  int
}

// ExpireDir removes every regular file in dir last modified before cutoff.
// A missing directory is not an error. Failures on single entries are
// logged and counted, and the sweep continues with the next entry.
func ExpireDir(dir string, cutoff time.Time) (ExpireResult, error) {
	var res ExpireResult

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				zlog.Logger.Err(err).Str("path", path).Msg("failed to stat file")
				res.Failed++
			}
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			zlog.Logger.Err(err).Str("path", path).Msg("failed to remove expired file")
			res.Failed++
			continue
		}

		res.Removed++
	}

	return res, nil
}
