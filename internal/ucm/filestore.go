package ucm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Compile-time check that FileStore satisfies Store.
var _ Store = (*FileStore)(nil)

// FileStore keeps one file per slot in a directory. Writes land in a
// temporary file that is renamed over the slot, so a concurrent reader sees
// either the old or the new matrix.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ucm: create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the slot files.
func (s *FileStore) Dir() string { return s.dir }

// Read returns the content of the slot file.
func (s *FileStore) Read(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, &StorageError{Op: "read", Slot: name, Err: err}
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &StorageError{Op: "read", Slot: name, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Slot: name, Err: err}
	}
	return data, nil
}

// Write replaces the slot file atomically.
func (s *FileStore) Write(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return &StorageError{Op: "write", Slot: name, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &StorageError{Op: "write", Slot: name, Err: err}
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid slot name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
