package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/chunkstore/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectsOutput)
	return out, args.Error(1)
}

func (m *mockAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *mockAPI) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.UploadPartOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CompleteMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockAPI) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.AbortMultipartUploadOutput)
	return out, args.Error(1)
}

func TestClient_Stat(t *testing.T) {
	api := new(mockAPI)
	c := NewClient(api, "bucket")

	api.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return *in.Key == "missing"
	})).Return(nil, &types.NotFound{}).Once()
	api.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return *in.Bucket == "bucket" && *in.Key == "present"
	})).Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(42)}, nil).Once()

	_, err := c.Stat(context.Background(), "missing")
	assert.ErrorIs(t, err, backend.ErrNotFound)

	size, err := c.Stat(context.Background(), "present")
	require.NoError(t, err)
	assert.Equal(t, int64(42), size)
	api.AssertExpectations(t)
}

func TestClient_GetRange(t *testing.T) {
	api := new(mockAPI)
	c := NewClient(api, "bucket")

	api.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Key == "k" && in.Range != nil && *in.Range == "bytes=2-4"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("234"))}, nil).Once()
	api.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Key == "k" && in.Range == nil
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("0123456789"))}, nil).Once()
	api.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Key == "gone"
	})).Return(nil, &types.NoSuchKey{}).Once()

	got, err := c.Get(context.Background(), "k", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, "234", string(got))

	got, err = c.Get(context.Background(), "k", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))

	got, err = c.Get(context.Background(), "k", 3, 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.Get(context.Background(), "gone", 0, -1)
	assert.ErrorIs(t, err, backend.ErrNotFound)
	api.AssertExpectations(t)
}

func TestClient_Put(t *testing.T) {
	api := new(mockAPI)
	c := NewClient(api, "bucket")

	var body string
	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "bucket" && *in.Key == "root/a"
	})).Run(func(args mock.Arguments) {
		data, _ := io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
		body = string(data)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, c.Put(context.Background(), "root/a", []byte("payload")))
	assert.Equal(t, "payload", body)
	api.AssertExpectations(t)
}

func TestClient_DeleteBatches(t *testing.T) {
	api := new(mockAPI)
	c := NewClient(api, "bucket")

	keys := make([]string, 1500)
	for i := range keys {
		keys[i] = "k"
	}
	var sizes []int
	api.On("DeleteObjects", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.DeleteObjectsInput)
		sizes = append(sizes, len(in.Delete.Objects))
	}).Return(&s3.DeleteObjectsOutput{}, nil).Twice()

	require.NoError(t, c.Delete(context.Background(), keys))
	assert.Equal(t, []int{1000, 500}, sizes)

	api2 := new(mockAPI)
	c2 := NewClient(api2, "bucket")
	api2.On("DeleteObjects", mock.Anything, mock.Anything).Return(&s3.DeleteObjectsOutput{
		Errors: []types.Error{{Key: aws.String("x"), Code: aws.String("AccessDenied"), Message: aws.String("nope")}},
	}, nil).Once()
	err := c2.Delete(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestClient_ListPagination(t *testing.T) {
	api := new(mockAPI)
	c := NewClient(api, "bucket")

	api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil && *in.Delimiter == "/" && *in.Prefix == "root/"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
		Contents:              []types.Object{{Key: aws.String("root/b")}},
	}, nil).Once()
	api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken != nil && *in.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:    aws.Bool(false),
		Contents:       []types.Object{{Key: aws.String("root/a")}},
		CommonPrefixes: []types.CommonPrefix{{Prefix: aws.String("root/dir/")}},
	}, nil).Once()

	keys, err := c.List(context.Background(), "root/", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"root/a", "root/b", "root/dir/"}, keys)
	api.AssertExpectations(t)
}

func TestStore_DirListing(t *testing.T) {
	api := new(mockAPI)
	root := NewStore(api, "bucket", "root/")

	api.On("ListObjectsV2", mock.Anything, mock.Anything).Return(&s3.ListObjectsV2Output{
		Contents:       []types.Object{{Key: aws.String("root/file")}},
		CommonPrefixes: []types.CommonPrefix{{Prefix: aws.String("root/store/")}},
	}, nil).Once()

	names, err := root.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"file", "store"}, names)
}
