package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store stores images in an S3 bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
	maxSize int64
}

// NewS3Store creates an S3 image store.
//
// Parameters:
//   - client: AWS S3 client from aws-sdk-go-v2
//   - bucket: bucket name
//   - prefix: key prefix (e.g. "images/")
//   - baseURL: public URL prefix; empty uses the bucket's virtual-hosted URL
//   - maxSize: maximum file size in bytes (0 = no limit)
func NewS3Store(client *s3.Client, bucket, prefix, baseURL string, maxSize int64) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  strings.TrimPrefix(prefix, "/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if err := checkType(contentType); err != nil {
		return "", err
	}
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	key := s.prefix + objectName(filename)

	// Buffer the file; dish images are small and PutObject wants a seekable
	// body for retries.
	var buf bytes.Buffer
	limit := int64(-1)
	if s.maxSize > 0 {
		limit = s.maxSize + 1
	}
	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit)
	}
	n, err := io.Copy(&buf, src)
	if err != nil {
		return "", fmt.Errorf("upload: read file: %w", err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return "", ErrTooLarge
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload: put object: %w", err)
	}

	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}
