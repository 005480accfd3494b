package storage

import (
	"context"
	"io"
)

// ObjectStorage is the read side of an S3-compatible bucket store.
type ObjectStorage interface {
	// Download opens an object for reading; the caller closes it.
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, bucket, key string) (bool, error)
}
