package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

// S3API is the subset of the S3 client the cart store needs.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage persists each cart as a JSON object in a bucket.
type S3Storage struct {
	client S3API
	bucket string
	prefix string
}

var _ repository.CartStateRepository = (*S3Storage)(nil)

// NewS3Client builds an S3 client from static credentials when provided,
// falling back to the default credential chain otherwise.
func NewS3Client(ctx context.Context, region, accessKeyID, secretAccessKey string) (*s3.Client, error) {
	if accessKeyID != "" && secretAccessKey != "" {
		cfg := aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		}
		return s3.NewFromConfig(cfg), nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func NewS3Storage(client S3API, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey maps a storage key to the object holding it.
func (s *S3Storage) ObjectKey(key string) string {
	name := strings.ReplaceAll(key, ":", "/") + ".json"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, repository.ErrCartStateNotFound
		}
		logger.Error("Failed to read cart object from S3", err, map[string]interface{}{
			"bucket":      s.bucket,
			"storage_key": key,
		})
		return nil, fmt.Errorf("failed to get cart object: %w", err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart object: %w", err)
	}
	return payload, nil
}

func (s *S3Storage) Set(ctx context.Context, key string, payload []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(key)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		logger.Error("Failed to write cart object to S3", err, map[string]interface{}{
			"bucket":      s.bucket,
			"storage_key": key,
		})
		return fmt.Errorf("failed to put cart object: %w", err)
	}
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete cart object: %w", err)
	}
	return nil
}
