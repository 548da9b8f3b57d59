package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/chunkstore/backend"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(minio.ErrorResponse{Code: "NoSuchKey"}), backend.ErrNotFound)
	assert.ErrorIs(t, translate(minio.ErrorResponse{Code: "NotFound"}), backend.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

// TestMinioBackend_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioBackend_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	bucket := "test-chunkstore"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	root := NewStore(client, bucket, "it/")
	t.Cleanup(func() {
		_ = root.Remove(context.Background(), "store", true)
	})

	f, err := backend.OpenFile(ctx, root, "store/a.bin", true)
	require.NoError(t, err)
	require.NoError(t, f.WriteAt(ctx, []byte("world"), 5))
	require.NoError(t, f.WriteAt(ctx, []byte("hello"), 0))

	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	got, err := snap.ReadRange(ctx, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, "lowo", string(got))

	store, err := root.Dir(ctx, "store", false)
	require.NoError(t, err)
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bin"}, names)

	require.NoError(t, root.Remove(ctx, "store", true))
	_, err = root.Dir(ctx, "store", false)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}
