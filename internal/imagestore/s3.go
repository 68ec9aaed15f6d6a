package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Config struct {
	Endpoint  string // host:port, e.g. "localhost:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3 keeps images in an S3-compatible bucket (MinIO in development) under the same
// uploads/images/<name> keys the disk store uses as paths.
type S3 struct {
	client *s3.Client
	bucket string
}

func NewS3(ctx context.Context, cfg S3Config, log *slog.Logger) (*S3, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 image store needs an endpoint and a bucket")
	}

	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	// path-style addressing is required for MinIO
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(protocol + "://" + cfg.Endpoint)
		o.UsePathStyle = true
	})

	s := &S3{client: client, bucket: cfg.Bucket}

	if err := s.ensureBucket(ctx); err != nil {
		log.Warn("could not ensure image bucket exists", "bucket", cfg.Bucket, "err", err)
	}

	return s, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *S3) Save(ctx context.Context, ext, contentType string, r io.Reader) (string, error) {
	key := publicPath(newName(ext))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put image: %w", err)
	}

	return key, nil
}

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	clean, ok := nameFrom(name)
	if !ok || clean != name {
		return nil, ErrNotFound
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicPath(clean)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}

	return out.Body, nil
}

func (s *S3) Remove(ctx context.Context, p string) error {
	name, ok := nameFrom(p)
	if !ok {
		return ErrNotFound
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicPath(name)),
	})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
