package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"

	"github.com/hupe1980/chunkstore/backend"
	"github.com/minio/minio-go/v7"
)

// Client adapts a MinIO client to backend.ObjectClient.
type Client struct {
	client *minio.Client
	bucket string
}

// NewClient creates an ObjectClient for bucket.
func NewClient(client *minio.Client, bucket string) *Client {
	return &Client{client: client, bucket: bucket}
}

// NewStore returns the root directory of a MinIO-backed store.
// rootPrefix is prepended to all keys (e.g. "torrents/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *backend.ObjectDir {
	return backend.NewObjectDir(NewClient(client, bucket), rootPrefix)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return backend.ErrNotFound
	}
	return err
}

// Stat implements backend.ObjectClient.
func (c *Client) Stat(ctx context.Context, key string) (int64, error) {
	info, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, translate(err)
	}
	return info.Size, nil
}

// Get implements backend.ObjectClient.
func (c *Client) Get(ctx context.Context, key string, from, to int64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	var err error
	switch {
	case to >= 0 && to <= from:
		return []byte{}, nil
	case to >= 0:
		err = opts.SetRange(from, to-1)
	case from > 0:
		// SetRange(start, 0) reads from start to the end of the object.
		err = opts.SetRange(from, 0)
	}
	if err != nil {
		return nil, err
	}

	obj, err := c.client.GetObject(ctx, c.bucket, key, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

// Put implements backend.ObjectClient.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Delete implements backend.ObjectClient.
func (c *Client) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var errs []error
	for rerr := range c.client.RemoveObjects(ctx, c.bucket, objects, minio.RemoveObjectsOptions{}) {
		if errors.Is(translate(rerr.Err), backend.ErrNotFound) {
			continue
		}
		errs = append(errs, rerr.Err)
	}
	return errors.Join(errs...)
}

// List implements backend.ObjectClient.
func (c *Client) List(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	var keys []string
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}
