package ninjadb

import (
	"context"
	"fmt"
)

// Backend is the byte-level object storage the file store keeps its documents in.
// Implementations: local filesystem, Google Cloud Storage, S3 and MinIO.
type Backend interface {
	// Object operations
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Conditional operations (for optimistic locking).
	// PutIfMatch writes only if the stored ETag equals expectedETag and
	// PutIfAbsent only if the key does not exist yet; both fail with
	// ErrConflict otherwise and return the new ETag on success.
	GetWithETag(ctx context.Context, key string) (data []byte, etag string, err error)
	PutIfMatch(ctx context.Context, key string, data []byte, expectedETag string) (string, error)
	PutIfAbsent(ctx context.Context, key string, data []byte) (string, error)

	// List returns every key under prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Health check
	Ping(ctx context.Context) error

	// Resource cleanup
	Close() error
}

// Blob backend kinds
const (
	BackendFilesystem = "filesystem"
	BackendGCS        = "gcs"
	BackendS3         = "s3"
	BackendMinIO      = "minio"
)

// BackendConfig holds configuration for any blob backend
type BackendConfig struct {
	Type      string // "filesystem", "gcs", "s3", "minio"
	Bucket    string // bucket name, or base directory for filesystem
	Region    string // AWS region (s3 only)
	Endpoint  string // custom endpoint (minio, S3-compatible services)
	AccessKey string // static credentials (minio)
	SecretKey string
	UseSSL    bool
	// CredentialsFile is a service account JSON file for GCS; ADC is used when empty
	CredentialsFile string
}

// Validate checks if the BackendConfig is valid
func (c BackendConfig) Validate() error {
	if c.Type == "" {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "Type",
			"reason": "backend type is required",
		})
	}
	if c.Bucket == "" {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "Bucket",
			"reason": "bucket/base path is required",
		})
	}

	switch c.Type {
	case BackendS3:
		if c.Region == "" && c.Endpoint == "" {
			return WithContext(ErrInvalidConfig, map[string]interface{}{
				"field":  "Region/Endpoint",
				"reason": "S3 backend requires either Region or Endpoint",
			})
		}
	case BackendMinIO:
		if c.Endpoint == "" {
			return WithContext(ErrInvalidConfig, map[string]interface{}{
				"field":  "Endpoint",
				"reason": "MinIO backend requires an endpoint",
			})
		}
	case BackendFilesystem, BackendGCS:
	default:
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "Type",
			"value":  c.Type,
			"reason": "unknown backend type",
		})
	}

	return nil
}

// OpenBackend creates the blob backend described by cfg.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case BackendGCS:
		return NewGCSBackend(ctx, GCSConfig{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.CredentialsFile,
		})
	case BackendS3:
		s3b, err := NewS3BackendFromConfig(ctx, cfg.Bucket, cfg.Region, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		return s3b, nil
	case BackendMinIO:
		mb, err := NewMinIOBackend(MinIOConfig{
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			UseSSL:          cfg.UseSSL,
			Bucket:          cfg.Bucket,
		})
		if err != nil {
			return nil, err
		}
		return mb, nil
	case BackendFilesystem:
		fs, err := NewFilesystemBackend(cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	return nil, fmt.Errorf("unreachable backend type %q", cfg.Type)
}
