// Package storage provides blob storage backends for uploaded assets.
//
// # Overview
//
// Uploaded files are persisted under opaque, service-generated storage keys
// (UUID + original extension). Two backends implement the BlobStore
// interface:
//
//   - FileSystemStore: local directory, temp-file + rename writes so a
//     failed upload never leaves a readable partial asset.
//   - S3Store: S3-compatible object storage (AWS S3 or MinIO), with
//     OpenTelemetry spans around each operation.
//
// The backend is selected by Config.Type ("filesystem" or "s3"), loaded
// from the environment by pkg/config.
//
// # Key validation
//
// Keys are generated by the upload pipeline and never derived from the
// client-supplied filename, but both backends still reject keys containing
// path separators or traversal elements before touching storage.
package storage
