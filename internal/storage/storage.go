package storage

import (
	"context"
	"io"

	"github.com/dev-tams/cronkit/internal/storage/prunable"
)

// ErrNotFound is returned by OpenReader when the key does not exist.
var ErrNotFound = prunable.ErrNotFound

type Storage interface {
	Name() string
	// OpenWriter returns a writer for key and the location it will land at
	// (a file path, s3://bucket/key, ...). The object becomes visible on Close.
	OpenWriter(ctx context.Context, key string) (io.WriteCloser, string, error)
	OpenReader(ctx context.Context, key string) (io.ReadCloser, error)
	prunable.Prunable
}

// Aborter is implemented by writers that can discard a partially written
// object instead of publishing it.
type Aborter interface {
	Abort(cause error) error
}

// Abort discards w if it supports it and closes it otherwise.
func Abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort(cause)
	}
	return w.Close()
}
