package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/chunkstore/backend"
)

// maxDeleteBatch is the DeleteObjects key limit.
const maxDeleteBatch = 1000

// API is the subset of the S3 client used by this package.
type API interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Client adapts an S3 client to backend.ObjectClient.
type Client struct {
	api      API
	bucket   string
	uploader *manager.Uploader
}

// NewClient creates an ObjectClient for bucket.
func NewClient(api API, bucket string) *Client {
	return &Client{
		api:      api,
		bucket:   bucket,
		uploader: manager.NewUploader(api),
	}
}

// NewStore returns the root directory of an S3-backed store.
// rootPrefix is prepended to all keys (e.g. "torrents/").
func NewStore(api API, bucket, rootPrefix string) *backend.ObjectDir {
	return backend.NewObjectDir(NewClient(api, bucket), rootPrefix)
}

// NewFromEnv loads the default AWS configuration (environment, shared config,
// instance role) and returns the root directory of an S3-backed store.
func NewFromEnv(ctx context.Context, bucket, rootPrefix string) (*backend.ObjectDir, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func translate(err error) error {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return backend.ErrNotFound
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return backend.ErrNotFound
	}
	return err
}

// Stat implements backend.ObjectClient.
func (c *Client) Stat(ctx context.Context, key string) (int64, error) {
	head, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, translate(err)
	}
	return aws.ToInt64(head.ContentLength), nil
}

// Get implements backend.ObjectClient.
func (c *Client) Get(ctx context.Context, key string, from, to int64) ([]byte, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	switch {
	case to >= 0 && to <= from:
		return []byte{}, nil
	case to >= 0:
		in.Range = aws.String(fmt.Sprintf("bytes=%d-%d", from, to-1))
	case from > 0:
		in.Range = aws.String(fmt.Sprintf("bytes=%d-", from))
	}

	resp, err := c.api.GetObject(ctx, in)
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// Put implements backend.ObjectClient.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete implements backend.ObjectClient.
func (c *Client) Delete(ctx context.Context, keys []string) error {
	for len(keys) > 0 {
		n := min(len(keys), maxDeleteBatch)
		ids := make([]types.ObjectIdentifier, n)
		for i, k := range keys[:n] {
			ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
		}
		keys = keys[n:]

		out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return err
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("deleting %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}
	return nil
}

// List implements backend.ObjectClient.
func (c *Client) List(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		in.Delimiter = aws.String("/")
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.api, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		for _, cp := range page.CommonPrefixes {
			keys = append(keys, aws.ToString(cp.Prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}
