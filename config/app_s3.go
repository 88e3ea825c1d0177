package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/akeren/waitlist-api/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrS3NotConfigured = errors.New("S3_EXPORT_BUCKET is not configured")

type S3Config struct {
	BucketName      string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Config reads the export bucket settings. AWS_ENDPOINT_URL targets an
// S3-compatible store such as LocalStack or MinIO.
func NewS3Config() *S3Config {
	return &S3Config{
		BucketName:      utils.GetEnvTrimmed("S3_EXPORT_BUCKET"),
		Prefix:          strings.Trim(utils.GetEnvTrimmedOrDefault("S3_EXPORT_PREFIX", "exports"), "/"),
		Region:          utils.GetEnvTrimmedOrDefault("AWS_REGION", "us-east-1"),
		Endpoint:        utils.GetEnvTrimmed("AWS_ENDPOINT_URL"),
		AccessKeyID:     utils.GetEnvTrimmed("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: utils.GetEnvTrimmed("AWS_SECRET_ACCESS_KEY"),
	}
}

func (c *S3Config) IsConfigured() bool {
	return c.BucketName != ""
}

// ObjectKey places name under the configured prefix.
func (c *S3Config) ObjectKey(name string) string {
	if c.Prefix == "" {
		return name
	}
	return path.Join(c.Prefix, name)
}

func (c *S3Config) NewClient(ctx context.Context) (*s3.Client, error) {
	options := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}

	// Static keys are only forced for custom endpoints; AWS itself uses the
	// default credential chain.
	if c.Endpoint != "" && c.AccessKeyID != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// s3PutObjectAPI is the slice of *s3.Client used for uploads.
type s3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ExportUploader stores export files in the configured bucket.
type ExportUploader struct {
	client s3PutObjectAPI
	config *S3Config
}

func NewExportUploader(client s3PutObjectAPI, cfg *S3Config) *ExportUploader {
	return &ExportUploader{client: client, config: cfg}
}

// Upload writes content to name under the configured prefix and returns the
// s3:// URI of the object.
func (u *ExportUploader) Upload(ctx context.Context, name, contentType string, content []byte) (string, error) {
	if !u.config.IsConfigured() {
		return "", ErrS3NotConfigured
	}

	key := u.config.ObjectKey(name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", u.config.BucketName, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", u.config.BucketName, key), nil
}
