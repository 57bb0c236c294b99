package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = errors.New("blob not found")

// BlobStore persists uploaded assets under opaque storage keys.
//
// Put streams the reader to durable storage. If the reader fails mid-stream,
// implementations must remove any partial object before returning the error;
// a key must never resolve to a truncated asset.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Config for storage backend
type Config struct {
	Type string // "filesystem" or "s3"

	// Filesystem config
	FilesystemRoot string

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:           "filesystem",
		FilesystemRoot: "./uploads",
		S3Region:       "us-east-1",
	}
}
