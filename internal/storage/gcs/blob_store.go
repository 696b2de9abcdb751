// Package gcs implements the blob store on Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"time"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/storage"
)

// BlobStore stores artifacts in GCS buckets. Authentication goes through
// Application Default Credentials.
type BlobStore struct {
	client *gstorage.Client
	logger *zap.Logger
}

// New creates the GCS client and verifies access to the given buckets so a
// misconfigured deployment fails at startup.
func New(ctx context.Context, buckets []string, logger *zap.Logger) (*BlobStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	for _, bucket := range buckets {
		if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("close gcs client after attrs failure", zap.Error(closeErr))
			}
			return nil, fmt.Errorf("check gcs bucket %q: %w", bucket, err)
		}
	}
	return &BlobStore{client: client, logger: logger}, nil
}

// Put uploads data to bucket/key. Close finalizes the upload and must
// succeed for the object to exist.
func (s *BlobStore) Put(ctx context.Context, bucket, key, contentType string, data []byte) (storage.ObjectInfo, error) {
	wc := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			s.logger.Warn("close gcs writer after write failure", zap.Error(closeErr))
		}
		return storage.ObjectInfo{}, fmt.Errorf("write gcs object %s/%s: %w", bucket, key, err)
	}
	if err := wc.Close(); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("finalize gcs object %s/%s: %w", bucket, key, err)
	}
	return storage.ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		URI:         fmt.Sprintf("gs://%s/%s", bucket, key),
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Get downloads the content of bucket/key.
func (s *BlobStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gcs object %s/%s: %w", bucket, key, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			s.logger.Warn("close gcs reader", zap.Error(closeErr))
		}
	}()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Close releases the underlying client.
func (s *BlobStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
