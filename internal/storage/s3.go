package storage

import (
	"alcyxob/exercise-curator/internal/config" // Import your config package
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// s3ListAPI is the subset of *s3.Client used for listings.
type s3ListAPI interface {
	s3.ListObjectsV2APIClient
}

// s3Presigner is the subset of *s3.PresignClient used for download links.
type s3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// s3Source implements MediaSource (and URLSigner) on an S3-compatible bucket.
type s3Source struct {
	client        s3ListAPI
	presignClient s3Presigner
	bucketName    string
	prefix        string
	pattern       string
	logger        *zap.Logger
}

// NewS3Source creates a media source listing objects under prefix in the
// configured bucket.
func NewS3Source(ctx context.Context, cfg config.S3Config, prefix, pattern string, logger *zap.Logger) (MediaSource, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3.bucket_name is required for the s3 media source")
	}
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error("failed to load AWS SDK config for S3", zap.Error(err))
		return nil, err
	}

	// Path-style addressing is required by most S3-compatible services (MinIO).
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = true
	})

	logger.Info("S3 media source initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.BucketName),
		zap.String("prefix", prefix))

	return newS3Source(s3Client, s3.NewPresignClient(s3Client), cfg.BucketName, prefix, pattern, logger), nil
}

func newS3Source(client s3ListAPI, presigner s3Presigner, bucket, prefix, pattern string, logger *zap.Logger) *s3Source {
	return &s3Source{
		client:        client,
		presignClient: presigner,
		bucketName:    bucket,
		prefix:        normalizePrefix(prefix),
		pattern:       pattern,
		logger:        logger,
	}
}

// normalizePrefix turns a configured prefix into a directory prefix, so that
// "gifs" lists "gifs/row.gif" but not "gifsextra.gif".
func normalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func (s *s3Source) Describe() string {
	return fmt.Sprintf("s3://%s/%s", s.bucketName, s.prefix)
}

// List pages through every object under the prefix. Keys in nested
// "directories" below the prefix are skipped, matching a flat directory
// listing.
func (s *s3Source) List(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(s.prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("failed to list media objects",
				zap.String("bucket", s.bucketName), zap.String("prefix", s.prefix), zap.Error(err))
			return nil, fmt.Errorf("list s3 media: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasPrefix(key, s.prefix) {
				continue
			}
			rel := strings.TrimPrefix(key, s.prefix)
			if rel == "" || strings.Contains(rel, "/") {
				continue
			}
			if matchPattern(s.pattern, rel) {
				names = append(names, rel)
			}
		}
	}
	return names, nil
}

// GeneratePresignedDownloadURL creates a temporary URL for downloading (GET).
func (s *s3Source) GeneratePresignedDownloadURL(ctx context.Context, filename string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	objectKey := path.Join(s.prefix, filename)
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.logger.Error("failed to generate presigned GET URL", zap.String("key", objectKey), zap.Error(err))
		return "", err
	}
	return req.URL, nil
}
