// Package blobstore keeps snapshot archives as named, immutable blobs.
//
// A blob becomes visible under its name only when Put returns or the
// WritableBlob from Create is closed; readers never see half an upload.
// Stores are safe for concurrent use.
//
//   - MemoryStore keeps objects in memory and counts writes
//   - LocalStore keeps one file per blob under a root directory
//   - s3.Store and minio.Store keep objects in a bucket under a prefix
//
// Blobs are read by range. ReadAll returns a whole blob and checks that
// every byte arrived.
package blobstore
