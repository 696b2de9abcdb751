// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pagesift/pagesift/internal/storage"
)

// BlobStore keeps artifacts in a map and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an in-memory blob store.
func New() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// Put stores the content under bucket/key.
func (s *BlobStore) Put(_ context.Context, bucket, key, contentType string, data []byte) (storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[bucket+"/"+key] = append([]byte(nil), data...)
	return storage.ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		URI:         fmt.Sprintf("memory://%s/%s", bucket, key),
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Get returns the stored content.
func (s *BlobStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return append([]byte(nil), data...), nil
}

// Close is a no-op for the memory store.
func (s *BlobStore) Close() error { return nil }

// Len reports the number of stored objects (test helper).
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
