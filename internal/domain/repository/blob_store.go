package repository

import (
	"context"
	"io"
)

// BlobStore almacenamiento opaco de archivos por clave.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
