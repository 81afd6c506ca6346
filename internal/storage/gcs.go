// Package storage moves documents in and out of Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// GCSService is the Cloud Storage implementation of Service. It assumes
// Application Default Credentials are configured.
type GCSService struct {
	client *gcs.Client
}

// NewGCSService creates a GCSService with its own storage client.
func NewGCSService(ctx context.Context) (*GCSService, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSService: create storage client: %w", err)
	}
	return &GCSService{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSService) Close() error {
	return s.client.Close()
}

// Upload writes data to bucket/object.
func (s *GCSService) Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: write %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalize %s/%s: %w", bucket, object, err)
	}
	return BuildURI(bucket, object), nil
}

// Fetch downloads the object named by uri.
func (s *GCSService) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}
