// Package ports declares the interfaces between the service core and
// its pluggable adapters.
package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// On localfs this is the same object key. On gdrive it is the Drive
	// fileId, so later reads and deletes can use it.
	ObjectKey string
	Size      int64
}

// ObjectStore persists workspace objects (uploaded images, batch
// manifests, finished artifacts) by key. Implementations: localfs,
// gdrive.
type ObjectStore interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}
