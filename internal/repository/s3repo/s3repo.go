// Package s3repo keeps a document as a single S3 object
package s3repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/mrled/suns/dnsrenew/internal/model"
)

// S3Client is the subset of the S3 API used by the repository
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Repository handles loading and saving a document to S3
type S3Repository struct {
	client      S3Client
	bucketName  string
	key         string
	contentType string
}

// New creates a repository for the object at key in bucketName
func New(client S3Client, bucketName, key string) *S3Repository {
	return &S3Repository{
		client:      client,
		bucketName:  bucketName,
		key:         key,
		contentType: "application/json",
	}
}

// Name implements model.BlobRepository
func (s *S3Repository) Name() string {
	return "s3://" + s.bucketName + "/" + s.key
}

// Load implements model.BlobRepository
func (s *S3Repository) Load(ctx context.Context) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, model.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	if len(body) == 0 {
		return nil, model.ErrBlobNotFound
	}

	return body, nil
}

// Save implements model.BlobRepository
func (s *S3Repository) Save(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(s.contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
