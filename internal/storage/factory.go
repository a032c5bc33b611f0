package storage

import (
	"context"
	"fmt"

	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/storage/local"
	s3store "github.com/dev-tams/cronkit/internal/storage/s3"
)

// Named builds the backend the config lists under name.
func Named(ctx context.Context, cfg *config.Config, name string) (Storage, error) {
	st, ok := cfg.StorageByName(name)
	if !ok {
		return nil, fmt.Errorf("storage %q not found in config", name)
	}
	return New(ctx, st)
}

func New(ctx context.Context, st config.StorageConfig) (Storage, error) {
	var (
		s   Storage
		err error
	)
	switch st.Type {
	case "local":
		s, err = newLocal(st.Name, st.Local)
	case "s3":
		s, err = newS3(ctx, st.Name, st.S3)
	default:
		err = fmt.Errorf("unknown type %q", st.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", st.Name, err)
	}
	return s, nil
}

func newLocal(name string, c *config.LocalConfig) (Storage, error) {
	if c == nil || c.Path == "" {
		return nil, fmt.Errorf("local.path is required")
	}
	return local.New(name, c.Path), nil
}

// newS3 uses static credentials when both keys are set and the default
// AWS credential chain otherwise.
func newS3(ctx context.Context, name string, c *config.S3Config) (Storage, error) {
	if c == nil {
		return nil, fmt.Errorf("s3 config missing")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return nil, fmt.Errorf("s3.access_key and s3.secret_key must be set together")
	}
	s, err := s3store.New(ctx, s3store.Options{
		Name:      name,
		Bucket:    c.Bucket,
		Region:    c.Region,
		Prefix:    c.Prefix,
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
