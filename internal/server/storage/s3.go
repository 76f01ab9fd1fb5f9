// Package storage talks to the S3-compatible bucket that holds uploaded
// objects. The server never moves object bytes itself: it hands out
// presigned URLs and deletes objects when transfers go away.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
)

// DefaultPresignTTL is how long presigned URLs stay valid.
const DefaultPresignTTL = time.Hour

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

type Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	PresignTTL   time.Duration
}

type S3Store struct {
	opts    Options
	client  *s3.Client
	presign *s3.PresignClient
	now     func() time.Time
}

// NewS3Store builds the client once. Path-style addressing is forced when a
// custom endpoint is configured, which is what MinIO expects.
func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is not configured", common.ErrValidation)
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = DefaultPresignTTL
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", common.ErrStorageUnavailable, err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		opts:    opts,
		client:  client,
		presign: newS3PresignClient(client),
		now:     time.Now,
	}, nil
}

func (s *S3Store) Bucket() string {
	return s.opts.Bucket
}

// PresignPut returns a URL the client can PUT the object body to.
func (s *S3Store) PresignPut(ctx context.Context, key string) (string, time.Time, error) {
	bucket := s.opts.Bucket
	expires := s.now().Add(s.opts.PresignTTL)

	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.opts.PresignTTL))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: presign put: %v", common.ErrStorageUnavailable, err)
	}
	return req.URL, expires, nil
}

// PresignGet returns a download URL that makes browsers save the object under
// filename.
func (s *S3Store) PresignGet(ctx context.Context, bucket, key, filename string) (string, time.Time, error) {
	if bucket == "" {
		bucket = s.opts.Bucket
	}
	expires := s.now().Add(s.opts.PresignTTL)

	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket:                     &bucket,
		Key:                        &key,
		ResponseContentDisposition: aws.String(ContentDisposition(filename)),
	}, s3.WithPresignExpires(s.opts.PresignTTL))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: presign get: %v", common.ErrStorageUnavailable, err)
	}
	return req.URL, expires, nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		bucket = s.opts.Bucket
	}
	_, err := deleteObject(s.client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", common.ErrStorageUnavailable, bucket, key, err)
	}
	return nil
}
