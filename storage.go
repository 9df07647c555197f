package auth

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goliatone/go-errors"
)

// S3StorageConfig holds the object storage options. Endpoint is optional
// and covers S3 compatible stores like MinIO.
type S3StorageConfig struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	// PublicBaseURL overrides the URL objects are served from, for
	// bucket-fronting CDNs. Defaults to the bucket's S3 URL.
	PublicBaseURL string
}

// S3MediaStorage stores avatars in an S3 bucket.
type S3MediaStorage struct {
	client *s3.Client
	config S3StorageConfig
}

// NewS3MediaStorage creates the storage client. Static credentials are only
// wired in when provided, otherwise the default AWS chain applies.
func NewS3MediaStorage(ctx context.Context, cfg S3StorageConfig) (*S3MediaStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 storage requires a bucket", errors.CategoryBadInput)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return &S3MediaStorage{
		client: client,
		config: cfg,
	}, nil
}

// Upload stores the object and returns its public URL.
func (s *S3MediaStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("s3 storage requires an object key", errors.CategoryBadInput)
	}

	input := &s3.PutObjectInput{
		Bucket: &s.config.Bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "failed to upload object").
			WithMetadata(map[string]any{"key": key})
	}

	return s.objectURL(key), nil
}

// Remove deletes the object. Removing a missing object succeeds, S3 delete
// is idempotent.
func (s *S3MediaStorage) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.config.Bucket,
		Key:    &key,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to delete object").
			WithMetadata(map[string]any{"key": key})
	}

	return nil
}

func (s *S3MediaStorage) objectURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return strings.TrimSuffix(s.config.PublicBaseURL, "/") + "/" + key
	}
	if s.config.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.config.Endpoint, "/"), s.config.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, key)
}

var _ MediaStorage = (*S3MediaStorage)(nil)

// NoopMediaStorage ignores uploads. Useful in tests and development.
type NoopMediaStorage struct{}

// Upload pretends to store the object and returns a placeholder URL.
func (NoopMediaStorage) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "noop://" + key, nil
}

// Remove does nothing.
func (NoopMediaStorage) Remove(context.Context, string) error { return nil }

var _ MediaStorage = (*NoopMediaStorage)(nil)
