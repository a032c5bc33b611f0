package prunable

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Prunable interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	BasePath() string // filesystem root for local storage, s3://bucket/prefix for s3
}
