package main

import (
	"context"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/chunkstore"
	"github.com/hupe1980/chunkstore/backend"
	"github.com/hupe1980/chunkstore/backend/minio"
	"github.com/hupe1980/chunkstore/backend/s3"
)

func openBackend(ctx context.Context, cfg chunkstore.BackendConfig) (backend.Dir, error) {
	switch cfg.Type {
	case "local":
		return backend.NewLocal(cfg.Path), nil
	case "memory":
		return backend.NewMemory(), nil
	case "minio":
		if cfg.Endpoint == "" || cfg.Bucket == "" {
			return nil, fmt.Errorf("%w: minio requires endpoint and bucket", chunkstore.ErrInvalidConfiguration)
		}
		client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			return nil, err
		}
		return minio.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("%w: s3 requires a bucket", chunkstore.ErrInvalidConfiguration)
		}
		d, err := s3.NewFromEnv(ctx, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend type %q", chunkstore.ErrInvalidConfiguration, cfg.Type)
	}
}
