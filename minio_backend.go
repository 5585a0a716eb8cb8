package ninjadb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MinIOConfig contains MinIO-specific configuration
type MinIOConfig struct {
	Endpoint        string // e.g., "localhost:9000" or "minio.example.com"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool // Whether to use HTTPS (default: false for localhost)
	Bucket          string
}

// NewMinIOBackend creates a new MinIO backend.
// MinIO speaks the S3 API, so this is an S3Backend with a static
// credential provider and path-style addressing.
func NewMinIOBackend(cfg MinIOConfig) (*S3Backend, error) {
	if cfg.Endpoint == "" {
		return nil, WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "FILESTORE_ENDPOINT",
			"reason": "MinIO backend requires an endpoint",
		})
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)),
		Region:       "us-east-1", // MinIO ignores regions, the SDK requires one
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	})

	return NewS3Backend(client, cfg.Bucket), nil
}
