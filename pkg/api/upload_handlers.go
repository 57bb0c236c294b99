package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/platinummonkey/capsule/pkg/httputil"
	"github.com/platinummonkey/capsule/pkg/observability"
	"github.com/platinummonkey/capsule/pkg/storage"
	"github.com/platinummonkey/capsule/pkg/upload"
)

// UploadHandlers handles media upload and retrieval
type UploadHandlers struct {
	pipeline *upload.Pipeline
	blobs    storage.BlobStore
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewUploadHandlers creates a new upload handlers instance
func NewUploadHandlers(pipeline *upload.Pipeline, blobs storage.BlobStore, metrics *observability.Metrics, logger *observability.Logger) *UploadHandlers {
	return &UploadHandlers{
		pipeline: pipeline,
		blobs:    blobs,
		metrics:  metrics,
		logger:   logger,
	}
}

// upload handles POST /upload. The multipart body is consumed as a stream;
// the file part is handed to the pipeline without buffering it in memory.
func (h *UploadHandlers) upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		httputil.WriteValidationError(w, "expected multipart/form-data request body")
		return
	}

	var asset *upload.Asset
	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			httputil.WriteValidationError(w, "malformed multipart request body")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		asset, err = h.pipeline.Store(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
		part.Close()
		break
	}

	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			h.metrics.UploadRejectedTotal.WithLabelValues("too_large").Inc()
			httputil.WriteValidationError(w, "file exceeds the upload size limit")
		case errors.Is(err, upload.ErrUnsupportedMediaType):
			h.metrics.UploadRejectedTotal.WithLabelValues("unsupported_type").Inc()
			httputil.WriteValidationError(w, "only image and video uploads are accepted")
		default:
			h.metrics.UploadsTotal.WithLabelValues("error").Inc()
			h.logger.WithError(err).Error("Upload failed")
			httputil.WriteInternalError(w, err)
		}
		return
	}

	if asset == nil {
		httputil.WriteValidationError(w, "file field is required")
		return
	}

	h.metrics.UploadsTotal.WithLabelValues("success").Inc()
	h.metrics.UploadBytesTotal.Add(float64(asset.ByteSize))

	fileURL := fmt.Sprintf("%s://%s/uploads/%s", requestScheme(r), r.Host, asset.Key)
	httputil.WriteSuccess(w, map[string]string{"fileUrl": fileURL})
}

// serve handles GET /uploads/{key}
func (h *UploadHandlers) serve(w http.ResponseWriter, r *http.Request) {
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}

	blob, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "file not found")
			return
		}
		h.logger.WithError(err).WithField("key", key).Error("Failed to read blob")
		httputil.WriteInternalError(w, err)
		return
	}
	defer blob.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if _, err := io.Copy(w, blob); err != nil {
		// Headers are already out; all we can do is log the broken stream
		h.logger.WithError(err).WithField("key", key).Warn("Interrupted while streaming blob")
	}
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
