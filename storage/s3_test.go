package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubS3 struct {
	copies   []*s3.CopyObjectInput
	deletes  [][]string
	pages    [][]types.Object
	copyErr  error
	deleteFn func(in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error)
}

func (s *stubS3) PutObject(_ context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

func (s *stubS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	s.copies = append(s.copies, in)
	return &s3.CopyObjectOutput{}, s.copyErr
}

func (s *stubS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	var keys []string
	for _, o := range in.Delete.Objects {
		keys = append(keys, aws.ToString(o.Key))
	}
	s.deletes = append(s.deletes, keys)
	if s.deleteFn != nil {
		return s.deleteFn(in)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (s *stubS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	idx := 0
	if in.ContinuationToken != nil {
		fmt.Sscanf(*in.ContinuationToken, "%d", &idx)
	}
	out := &s3.ListObjectsV2Output{}
	if idx < len(s.pages) {
		out.Contents = s.pages[idx]
	}
	if idx+1 < len(s.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(fmt.Sprintf("%d", idx+1))
	}
	return out, nil
}

func TestS3Store_CopyEncodesSource(t *testing.T) {
	api := &stubS3{}
	s := NewS3StoreWithClient(api, "media", "https://cdn.example.com")
	require.NoError(t, s.Copy(context.Background(), "temp/image/a b.png", "permanent/image/a b.png"))
	require.Len(t, api.copies, 1)
	assert.Equal(t, "media/temp/image/a%20b.png", aws.ToString(api.copies[0].CopySource))
	assert.Equal(t, "permanent/image/a b.png", aws.ToString(api.copies[0].Key))
}

func TestS3Store_CopyNoSuchKey(t *testing.T) {
	api := &stubS3{copyErr: &types.NoSuchKey{}}
	s := NewS3StoreWithClient(api, "media", "")
	err := s.Copy(context.Background(), "temp/image/a.png", "permanent/image/a.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestS3Store_DeleteBatches(t *testing.T) {
	api := &stubS3{}
	s := NewS3StoreWithClient(api, "media", "")
	paths := make([]string, 2500)
	for i := range paths {
		paths[i] = fmt.Sprintf("temp/image/%d.png", i)
	}
	require.NoError(t, s.Delete(context.Background(), paths))
	require.Len(t, api.deletes, 3)
	assert.Len(t, api.deletes[0], 1000)
	assert.Len(t, api.deletes[2], 500)

	require.NoError(t, s.Delete(context.Background(), nil))
	assert.Len(t, api.deletes, 3)
}

func TestS3Store_DeleteReportsPerKeyErrors(t *testing.T) {
	api := &stubS3{deleteFn: func(*s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		return &s3.DeleteObjectsOutput{Errors: []types.Error{{
			Key: aws.String("temp/image/a.png"), Code: aws.String("AccessDenied"), Message: aws.String("denied"),
		}}}, nil
	}}
	s := NewS3StoreWithClient(api, "media", "")
	err := s.Delete(context.Background(), []string{"temp/image/a.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestS3Store_ListPaginates(t *testing.T) {
	now := time.Now()
	api := &stubS3{pages: [][]types.Object{
		{{Key: aws.String("temp/image/a.png"), Size: aws.Int64(1), LastModified: &now}},
		{{Key: aws.String("temp/image/b.png"), Size: aws.Int64(2)}},
	}}
	s := NewS3StoreWithClient(api, "media", "")
	objs, err := s.List(context.Background(), "temp/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "temp/image/b.png", objs[1].Path)
	assert.Equal(t, now, objs[0].LastModified)
}
