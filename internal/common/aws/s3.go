// internal/common/aws/s3.go
package aws

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"applysync/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used for uploads.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Presigner is the subset of s3.PresignClient used for signed links.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var whitespace = regexp.MustCompile(`\s+`)

// S3Store keeps uploaded application documents in a single bucket.
type S3Store struct {
	client    S3API
	presigner S3Presigner
	bucket    string
	keyPrefix string
	now       func() time.Time
}

func NewS3Store(client S3API, presigner S3Presigner, bucket, keyPrefix string) *S3Store {
	return &S3Store{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// NewS3StoreFromConfig wires the real S3 client and its presigner.
func NewS3StoreFromConfig(cfg awssdk.Config, bucket, keyPrefix string) *S3Store {
	client := s3.NewFromConfig(cfg)
	return NewS3Store(client, s3.NewPresignClient(client), bucket, keyPrefix)
}

// Bucket is the bucket every locator returned by Store lives in.
func (s *S3Store) Bucket() string {
	return s.bucket
}

// ObjectKey derives the locator for a document: prefix, upload time in
// milliseconds, then the file name with whitespace runs replaced by "_".
func (s *S3Store) ObjectKey(originalName string) string {
	return fmt.Sprintf("%s%d-%s", s.keyPrefix, s.now().UnixMilli(), whitespace.ReplaceAllString(originalName, "_"))
}

// Store uploads the document and returns its object key.
func (s *S3Store) Store(ctx context.Context, document []byte, contentType string, meta models.ArtifactMetadata) (string, error) {
	key := s.ObjectKey(meta.OriginalName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(document),
		ContentType: awssdk.String(contentType),
		Metadata: map[string]string{
			"originalName":  meta.OriginalName,
			"applicantName": meta.ApplicantName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// SignedURL returns a time-limited GET link for a stored document.
func (s *S3Store) SignedURL(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.bucket),
		Key:    awssdk.String(locator),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", locator, err)
	}
	return req.URL, nil
}
