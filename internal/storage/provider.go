// Package storage defines the blob store contract for persisted artifacts.
package storage

import (
	"context"
	"strings"
	"time"
)

// ObjectInfo describes one stored artifact.
type ObjectInfo struct {
	Bucket      string
	Key         string
	URI         string
	Size        int64
	ContentType string
	UploadedAt  time.Time
}

// BlobStore persists and retrieves artifacts in object storage.
type BlobStore interface {
	// Put stores data under bucket/key and returns the object info.
	Put(ctx context.Context, bucket, key, contentType string, data []byte) (ObjectInfo, error)
	// Get returns the content of bucket/key.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Close releases client resources.
	Close() error
}

// ContentTypeFor maps an artifact filename suffix to a MIME type.
func ContentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".md"):
		return "text/markdown; charset=utf-8"
	case strings.HasSuffix(filename, ".json"):
		return "application/json"
	case strings.HasSuffix(filename, ".txt"):
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
