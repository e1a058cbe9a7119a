// Package s3backend stores persisted values as objects in an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	backend := s3backend.New(s3.NewFromConfig(cfg), "my-bucket", s3backend.WithPrefix("stores/"))
//	host := persist.NewHost(nil, backend)
package s3backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client is the subset of *s3.Client the backend uses.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// maxDeleteBatch is the S3 limit for keys per DeleteObjects call.
const maxDeleteBatch = 1000

// Backend is a persist.Backend storing one object per key under a prefix.
type Backend struct {
	client      Client
	bucket      string
	prefix      string
	contentType string
	pageSize    int32
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix sets the object key prefix. Default: "vstore/".
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// WithContentType sets the Content-Type of written objects.
// Default: "application/json".
func WithContentType(ct string) Option {
	return func(b *Backend) {
		b.contentType = ct
	}
}

// WithPageSize sets the ListObjectsV2 page size Clear uses. Default: 1000.
func WithPageSize(n int32) Option {
	return func(b *Backend) {
		b.pageSize = n
	}
}

// New creates a backend for bucket.
func New(client Client, bucket string, opts ...Option) *Backend {
	b := &Backend{
		client:      client,
		bucket:      bucket,
		prefix:      "vstore/",
		contentType: "application/json",
		pageSize:    maxDeleteBatch,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetItem downloads the object for key.
func (b *Backend) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("s3 get %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("s3 read %q: %w", key, err)
	}
	return data, true, nil
}

// SetItem uploads data as the object for key.
func (b *Backend) SetItem(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(b.contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the object for key.
func (b *Backend) RemoveItem(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

// Clear deletes every object under the prefix.
func (b *Backend) Clear(ctx context.Context) error {
	var batch []types.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("s3 clear: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	err := b.eachObject(ctx, func(obj types.Object) error {
		batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
		if len(batch) == maxDeleteBatch {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// Keys returns the stored keys without the prefix.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.eachObject(ctx, func(obj types.Object) error {
		keys = append(keys, aws.ToString(obj.Key)[len(b.prefix):])
		return nil
	})
	return keys, err
}

// eachObject calls fn for every object under the prefix.
func (b *Backend) eachObject(ctx context.Context, fn func(types.Object) error) error {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.prefix),
		MaxKeys: aws.Int32(b.pageSize),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			if err := fn(obj); err != nil {
				return err
			}
		}
	}
	return nil
}
