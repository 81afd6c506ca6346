package storage

import "context"

// Service reads and writes document objects in cloud storage.
type Service interface {
	// Upload stores data under bucket/object and returns its gs:// URI.
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)

	// Fetch downloads the object named by a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}
