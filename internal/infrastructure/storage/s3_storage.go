package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
)

// S3Config configures the S3 (or S3-compatible) attachment bucket
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client. Static credentials are used when given, otherwise the
// default AWS credential chain applies.
func NewS3Client(cfg S3Config) (s3iface.S3API, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return s3.New(sess), nil
}

// S3AttachmentStore implements port.AttachmentStore on an S3 bucket.
// References have the form s3://<bucket>/<key>.
type S3AttachmentStore struct {
	client s3iface.S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3AttachmentStore creates a store writing to bucket under prefix
func NewS3AttachmentStore(client s3iface.S3API, bucket, prefix string, logger *zap.Logger) *S3AttachmentStore {
	return &S3AttachmentStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Store uploads content and returns its s3:// reference
func (s *S3AttachmentStore) Store(ctx context.Context, name string, content []byte) (string, error) {
	key := ObjectName(name)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(http.DetectContentType(content)),
	})
	if err != nil {
		s.logger.Error("Failed to upload attachment",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}

	s.logger.Debug("Attachment uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(content)))

	return s.url(key), nil
}

// Delete removes the object behind an s3:// reference of this bucket. S3 deletes are idempotent.
func (s *S3AttachmentStore) Delete(ctx context.Context, url string) error {
	key, ok := s.keyOf(url)
	if !ok {
		return fmt.Errorf("not an attachment of bucket %s: %s", s.bucket, url)
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("Failed to delete attachment",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func (s *S3AttachmentStore) url(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func (s *S3AttachmentStore) keyOf(url string) (string, bool) {
	prefix := "s3://" + s.bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

var _ port.AttachmentStore = (*S3AttachmentStore)(nil)
