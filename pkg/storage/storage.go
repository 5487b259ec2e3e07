package storage

import (
	"context"
	"io"
)

// UploadInput describes one object to archive.
type UploadInput struct {
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
}

// Service is the object store used for event archives.
type Service interface {
	PutObject(ctx context.Context, in UploadInput) (string, error)
	DeleteObject(ctx context.Context, key string) error
	// Ping checks that the bucket is reachable.
	Ping(ctx context.Context) error
}
