// Package objectstore abstracts the S3-compatible storage the pipeline
// stages artifacts from and publishes results to.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Store abstracts S3-compatible object storage.
type Store interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	// Download fetches an object into a local file, replacing it if present.
	Download(ctx context.Context, bucket, key, path string) error
	// Upload publishes a local file as an object.
	Upload(ctx context.Context, path, bucket, key, contentType string) error
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}
