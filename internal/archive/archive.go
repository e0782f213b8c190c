// Package archive stores generated reports in S3
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrDisabled is returned when no bucket is configured
var ErrDisabled = errors.New("report archival is not configured")

// KeyPrefix is the object key prefix for archived reports
const KeyPrefix = "reports"

// Archiver stores a report and returns its object key
type Archiver interface {
	Store(ctx context.Context, name, contentType string, body []byte) (string, error)
}

// Config holds S3 settings. Static keys are optional; the default AWS
// credential chain is used when they are empty.
type Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads reports to a bucket
type S3Archiver struct {
	client putObjectAPI
	bucket string
}

// NewS3Archiver builds an archiver from config
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrDisabled
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Printf("[Archive] S3 archival enabled, bucket=%s, region=%s", cfg.Bucket, awsCfg.Region)

	return &S3Archiver{client: client, bucket: cfg.Bucket}, nil
}

// Store uploads body under reports/<name>
func (a *S3Archiver) Store(ctx context.Context, name, contentType string, body []byte) (string, error) {
	key := path.Join(KeyPrefix, name)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return key, nil
}

// Disabled is the archiver used when no bucket is configured
type Disabled struct{}

func (Disabled) Store(context.Context, string, string, []byte) (string, error) {
	return "", ErrDisabled
}
