package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/optica/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultS3Region = "us-east-1"

// S3Store keeps receipts in an S3-compatible bucket such as AWS S3 or MinIO.
// Objects are keyed by file name under an optional prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

type S3StoreOption func(*S3Store)

func WithLogger(logger *zap.Logger) S3StoreOption {
	return func(s *S3Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewS3Store builds the client. Static keys are used when configured,
// otherwise the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg *config.StorageConfig, opts ...S3StoreOption) (*S3Store, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	endpoint, err := s3Settings(cfg)
	if err != nil {
		return nil, err
	}

	region := cfg.S3Region
	if region == "" {
		region = defaultS3Region
	}
	load := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.S3AccessKeyID != "" {
		load = append(load, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	store := &S3Store{
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.S3UsePathStyle
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
			// MinIO and friends reject the newer default checksum headers
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}),
		bucket: cfg.S3Bucket,
		prefix: strings.Trim(cfg.S3Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// s3Settings checks cfg and returns the endpoint with a scheme, https unless
// one is given
func s3Settings(cfg *config.StorageConfig) (string, error) {
	var problems []error
	if cfg.S3Bucket == "" {
		problems = append(problems, errors.New("storage bucket is required"))
	}
	if (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
		problems = append(problems, errors.New("storage access key and secret key must be set together"))
	}

	endpoint := cfg.S3Endpoint
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	if endpoint != "" {
		if u, err := url.Parse(endpoint); err != nil || u.Host == "" {
			problems = append(problems, fmt.Errorf("invalid storage endpoint %q", cfg.S3Endpoint))
		}
	}
	return endpoint, errors.Join(problems...)
}

// EnsureBucket creates the bucket unless it exists. Run it at startup.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	switch {
	case err == nil:
		return nil
	case !hasCode(err, "NotFound", "NoSuchBucket"):
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Creating receipt bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil && !hasCode(err, "BucketAlreadyOwnedByYou") {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Save uploads data. Receipts open inline in the browser under their own name.
func (s *S3Store) Save(ctx context.Context, name string, data []byte, contentType string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                key,
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(fmt.Sprintf("inline; filename=%q", name)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", *key, err)
	}
	s.logger.Debug("Receipt uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", *key),
		zap.Int("bytes", len(data)))
	return nil
}

// Open streams an object. The caller closes it.
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: key})
	switch {
	case err == nil:
		return out.Body, nil
	case isNotFound(err):
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("download %s: %w", *key, err)
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: key})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", *key, err)
}

// Delete removes an object. S3 reports success for missing keys.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: key}); err != nil {
		return fmt.Errorf("delete %s: %w", *key, err)
	}
	return nil
}

func (s *S3Store) Bucket() string { return s.bucket }

func (s *S3Store) key(name string) (*string, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if s.prefix != "" {
		name = s.prefix + "/" + name
	}
	return aws.String(name), nil
}

func isNotFound(err error) bool {
	return hasCode(err, "NotFound", "NoSuchKey")
}

// hasCode reports whether err is an S3 API error with one of codes.
// HEAD responses carry no body, so their 404 surfaces as "NotFound".
func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && slices.Contains(codes, apiErr.ErrorCode())
}

var _ FileStore = (*S3Store)(nil)
