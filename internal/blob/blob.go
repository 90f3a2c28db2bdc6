// Package blob provides a uniform adapter over S3-compatible object storage:
// download, upload, list and presigned-URL issuance. Both the dispatcher's
// API tier and the transcoding worker depend on it.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds object storage connection configuration
type Config struct {
	Region            string
	Endpoint          string // optional, for S3-compatible stores
	AccessKeyID       string
	SecretAccessKey   string
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// Store is an object storage client constructed once and injected into the
// components that need it.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	config   *Config
	logger   *slog.Logger
}

// NewStore creates a new object storage client
func NewStore(ctx context.Context, config *Config, logger *slog.Logger) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID, config.SecretAccessKey, "",
		)),
		awsconfig.WithRegion(config.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("Object storage client initialized",
		slog.String("region", config.Region),
	)

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		config:   config,
		logger:   logger,
	}, nil
}

// Download streams an object into a local file and returns the byte count.
func (s *Store) Download(ctx context.Context, bucket, key, localPath string) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer file.Close()

	written, err := io.Copy(file, out.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to write object body to %s: %w", localPath, err)
	}

	return written, nil
}

// Upload streams a local file to an object key
func (s *Store) Upload(ctx context.Context, bucket, key, localPath, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}

	s.logger.Debug("Object uploaded",
		slog.String("bucket", bucket),
		slog.String("key", key),
	)

	return nil
}

// PresignUpload issues a time-limited PUT URL for a client-side upload
func (s *Store) PresignUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	expiry := s.config.UploadURLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	return req.URL, nil
}

// PresignDownload issues a time-limited GET URL for a produced output
func (s *Store) PresignDownload(ctx context.Context, bucket, key string) (string, error) {
	expiry := s.config.DownloadURLExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}

	return req.URL, nil
}

// List returns the object keys under a prefix
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}
