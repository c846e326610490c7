package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Options configures the S3 client. Empty credentials fall back to the
// default AWS chain (env, shared config, instance role).
type Options struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Client stores finished exports in one bucket.
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucketName string
	prefix     string
}

// FileMetadata describes an uploaded export.
type FileMetadata struct {
	OriginalName string            `json:"original_name"`
	ContentType  string            `json:"content_type"`
	Size         int64             `json:"size"`
	Metadata     map[string]string `json:"metadata"`
}

// LoadAWSConfig resolves AWS configuration from opts, falling back to the
// default chain.
func LoadAWSConfig(ctx context.Context, opts Options) (aws.Config, error) {
	var loaders []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loaders = append(loaders, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loaders = append(loaders, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// NewS3Client creates a new S3 client
func NewS3Client(ctx context.Context, opts Options) (*S3Client, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket not configured")
	}
	cfg, err := LoadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		downloader: manager.NewDownloader(cli),
		bucketName: opts.Bucket,
		prefix:     strings.Trim(opts.Prefix, "/"),
	}, nil
}

// Key builds the object key for a job's export.
func (s *S3Client) Key(jobID, fileName string) string {
	if s.prefix == "" {
		return fmt.Sprintf("%s/%s", jobID, fileName)
	}
	return fmt.Sprintf("%s/%s/%s", s.prefix, jobID, fileName)
}

// URL returns the s3:// reference for key.
func (s *S3Client) URL(key string) string { return fmt.Sprintf("s3://%s/%s", s.bucketName, key) }

// UploadFile uploads data through the multipart upload manager and returns
// the s3:// URL.
func (s *S3Client) UploadFile(ctx context.Context, key string, data []byte, meta *FileMetadata) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if meta != nil {
		if meta.ContentType != "" {
			in.ContentType = aws.String(meta.ContentType)
		}
		if meta.OriginalName != "" {
			in.ContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", meta.OriginalName))
		}
		m := make(map[string]string, len(meta.Metadata)+1)
		for k, v := range meta.Metadata {
			m[k] = v
		}
		if meta.OriginalName != "" {
			m["name"] = meta.OriginalName
		}
		in.Metadata = m
	}

	out, err := s.uploader.Upload(ctx, in)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("s3 upload failed")
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().
		Str("key", key).
		Str("location", out.Location).
		Int("size", len(data)).
		Msg("uploaded export to S3")
	return s.URL(key), nil
}

// DownloadFile fetches an object into memory.
func (s *S3Client) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer([]byte{})
	n, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	log.Debug().Str("key", key).Int64("size", n).Msg("downloaded export from S3")
	return buf.Bytes(), nil
}

// KeyFromURL extracts the object key from an s3:// URL in this bucket.
func (s *S3Client) KeyFromURL(u string) (string, bool) {
	prefix := fmt.Sprintf("s3://%s/", s.bucketName)
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	return strings.TrimPrefix(u, prefix), true
}

// HeadBucket checks the bucket is reachable with the current credentials.
func (s *S3Client) HeadBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	return err
}

// Bucket returns the configured bucket name.
func (s *S3Client) Bucket() string { return s.bucketName }
