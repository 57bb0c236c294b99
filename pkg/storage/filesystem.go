package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemStore implements BlobStore using the local filesystem
type FileSystemStore struct {
	rootDir string
}

// NewFileSystemStore creates a new filesystem-based blob store
func NewFileSystemStore(rootDir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FileSystemStore{rootDir: rootDir}, nil
}

// validateKey rejects keys that could escape the root directory. Keys are
// service-generated UUIDs plus an extension, so anything with a separator
// or traversal element is hostile input.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty storage key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid storage key: %q", key)
	}
	return nil
}

// Put implements BlobStore.Put. The payload is written to a temp file and
// renamed into place so a mid-stream failure never leaves a readable
// partial asset under the key.
func (s *FileSystemStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.rootDir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	written, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to flush blob: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.rootDir, key)); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to finalize blob: %w", err)
	}

	return written, nil
}

// Get implements BlobStore.Get
func (s *FileSystemStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.rootDir, key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Delete implements BlobStore.Delete. Deleting an absent key is not an error.
func (s *FileSystemStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.rootDir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// contextReader aborts a copy as soon as the request context is cancelled,
// so a disconnected client releases the partial write promptly.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
