package storage

import (
	"context"
	"io"
)

// UploadOptions conveys the archive destination.
type UploadOptions struct {
	Bucket    string
	KeyPrefix string
}

// Service keeps copies of cover images in remote object storage.
type Service interface {
	PutObject(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
}
