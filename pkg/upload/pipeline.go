// Package upload validates and persists uploaded media files.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/platinummonkey/capsule/pkg/storage"
)

var (
	// ErrTooLarge is returned when the payload exceeds the stream-level
	// size cap
	ErrTooLarge = errors.New("uploaded file exceeds the size limit")

	// ErrUnsupportedMediaType is returned when the declared MIME type is
	// not an allowed image or video type
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// mimeTypePattern allows image/* and video/* with an alphabetic subtype
var mimeTypePattern = regexp.MustCompile(`^(image|video)/[a-zA-Z]+$`)

// Asset describes a stored upload. Immutable once written; ownership of
// the bytes passes to the blob store.
type Asset struct {
	// Key is the storage key: a fresh UUID plus the original extension
	Key string
	// MimeType is the declared content type
	MimeType string
	// ByteSize is the number of bytes persisted
	ByteSize int64
}

// Pipeline converts an untrusted inbound file stream into a safely named,
// size-bounded stored asset.
type Pipeline struct {
	store    storage.BlobStore
	maxBytes int64
}

// NewPipeline creates a new upload pipeline
func NewPipeline(store storage.BlobStore, maxBytes int64) *Pipeline {
	return &Pipeline{
		store:    store,
		maxBytes: maxBytes,
	}
}

// Store validates the stream and persists it under a fresh storage key.
//
// The MIME allow-list is checked before any byte is read, and the size cap
// is enforced by a limiting reader that fails mid-stream rather than
// buffering the payload to measure it. The declared filename contributes
// only its extension to the storage key; it is never used as a path
// component.
func (p *Pipeline) Store(ctx context.Context, r io.Reader, filename, mimeType string) (*Asset, error) {
	if !mimeTypePattern.MatchString(mimeType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mimeType)
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(filename)))

	written, err := p.store.Put(ctx, key, &cappedReader{r: r, remaining: p.maxBytes}, mimeType)
	if err != nil {
		// The filesystem store cleans its own partials; the delete covers
		// backends that may have finalized the object before the failure
		// surfaced.
		_ = p.store.Delete(ctx, key)
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return &Asset{
		Key:      key,
		MimeType: mimeType,
		ByteSize: written,
	}, nil
}

// cappedReader fails with ErrTooLarge as soon as the cumulative byte count
// crosses the cap, so a hostile client cannot make the service buffer an
// unbounded payload.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, ErrTooLarge
	}
	// Read one byte past the cap so overflow is detected on this call
	// rather than after a full extra buffer.
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return 0, ErrTooLarge
	}
	return n, err
}
