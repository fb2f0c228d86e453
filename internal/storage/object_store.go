package storage

import (
	"context"
	"io"
)

// ObjectStore transports intermediate stage outputs and staged artifacts
// between pipeline stages. Deployments use S3; local mode and tests use the
// filesystem implementation.
type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	DeleteObjects(ctx context.Context, bucket, prefix string) error
}
