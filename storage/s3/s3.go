// Package s3 signs GET requests for objects in an S3 (or S3-compatible)
// bucket. Importing it registers the "s3" storage provider.
package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderS3, func(ctx context.Context, cfg storage.Config, _ *logger.Logger) (storage.SignedURLProvider, error) {
		return New(ctx, cfg)
	})
}

// Signer presigns GetObject requests.
type Signer struct {
	client  *awss3.Client
	presign *awss3.PresignClient
	bucket  string
}

var (
	_ storage.SignedURLProvider = (*Signer)(nil)
	_ storage.Checker           = (*Signer)(nil)
)

// New loads AWS configuration for cfg.Region and builds a signer. Static
// credentials are used when configured; otherwise the default chain.
func New(ctx context.Context, cfg storage.Config) (*Signer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible endpoints rarely serve virtual-hosted buckets.
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})
	return &Signer{client: client, presign: awss3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

// SignedURL returns a presigned GET URL for key valid for ttl.
func (s *Signer) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Check verifies the bucket is reachable.
func (s *Signer) Check(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("storage: head bucket %s: %w", s.bucket, err)
	}
	return nil
}
