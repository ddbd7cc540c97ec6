// Package storage uploads avatar images to S3-compatible object
// storage and returns publicly addressable URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// AvatarStorage stores an avatar image and returns its public URL.
type AvatarStorage interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Config holds S3 connection settings. BaseEndpoint is set for
// MinIO-style deployments and left empty for AWS proper.
type Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	PublicURL    string
}

// S3AvatarStorage implements AvatarStorage over the AWS SDK.
type S3AvatarStorage struct {
	client *s3.Client
	config *Config
}

// NewS3AvatarStorage builds the S3 client from static credentials.
func NewS3AvatarStorage(ctx context.Context, cfg *Config) (*S3AvatarStorage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3AvatarStorage{client: client, config: cfg}, nil
}

// Upload puts the image under a random avatars/ key and returns its
// public URL.
func (s *S3AvatarStorage) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("avatars/%s%s", uuid.New(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put avatar object: %w", err)
	}

	base := strings.TrimSuffix(s.config.PublicURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.config.Bucket, s.config.Region)
	}
	return base + "/" + key, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
