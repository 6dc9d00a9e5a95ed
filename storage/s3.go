package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"cmrp/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the store uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads to a bucket and returns public object URLs
type S3Store struct {
	client     S3API
	bucket     string
	publicBase string
}

// NewS3Store creates a bucket-backed store. publicBase (e.g. a CDN origin) defaults to the
// virtual-hosted bucket URL.
func NewS3Store(client S3API, bucket, publicBase string) *S3Store {
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3Store{client: client, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}
}

// Save puts the object under prefix with a random key
func (s *S3Store) Save(ctx context.Context, prefix string, f File) (string, error) {
	key := utils.ObjectKey(prefix, extensionFor(f))

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(f.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(f.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3: %w", key, err)
	}
	return s.publicBase + "/" + key, nil
}
