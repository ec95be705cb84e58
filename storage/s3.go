package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	Client    S3API
	Bucket    string
	Prefix    string
	PublicURL string
}

// NewS3Store builds a store using the default AWS credential chain.
func NewS3Store(ctx context.Context, region, bucket, prefix, publicURL string) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return &S3Store{
		Client:    s3.NewFromConfig(cfg),
		Bucket:    bucket,
		Prefix:    prefix,
		PublicURL: publicURL,
	}, nil
}

func (s *S3Store) Save(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	key := objectName(ext)
	if p := strings.Trim(s.Prefix, "/"); p != "" {
		key = p + "/" + key
	}
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.Bucket, key, err)
	}
	return strings.TrimRight(s.PublicURL, "/") + "/" + key, nil
}
