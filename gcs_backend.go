package ninjadb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBackend implements Backend using Google Cloud Storage
type GCSBackend struct {
	client *storage.Client
	bucket string
}

// GCSConfig contains GCS-specific configuration
type GCSConfig struct {
	Bucket          string
	CredentialsFile string // Path to service account JSON file (optional, uses ADC if empty)
}

// NewGCSBackend creates a new GCS backend
func NewGCSBackend(ctx context.Context, cfg GCSConfig) (Backend, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSBackend{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (b *GCSBackend) object(key string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(key)
}

func (b *GCSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, _, err := b.GetWithETag(ctx, key)
	return data, err
}

func (b *GCSBackend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.write(ctx, b.object(key), data)
	return err
}

func (b *GCSBackend) Delete(ctx context.Context, key string) error {
	err := b.object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func (b *GCSBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetWithETag uses the object generation as the ETag.
func (b *GCSBackend) GetWithETag(ctx context.Context, key string) ([]byte, string, error) {
	reader, err := b.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}
	return data, strconv.FormatInt(reader.Attrs.Generation, 10), nil
}

// PutIfMatch is a true conditional write via generation preconditions.
func (b *GCSBackend) PutIfMatch(ctx context.Context, key string, data []byte, expectedETag string) (string, error) {
	gen, err := strconv.ParseInt(expectedETag, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid ETag format: %w", err)
	}
	obj := b.object(key).If(storage.Conditions{GenerationMatch: gen})
	return b.conditionalWrite(ctx, key, obj, data, expectedETag)
}

func (b *GCSBackend) PutIfAbsent(ctx context.Context, key string, data []byte) (string, error) {
	obj := b.object(key).If(storage.Conditions{DoesNotExist: true})
	return b.conditionalWrite(ctx, key, obj, data, "")
}

func (b *GCSBackend) conditionalWrite(ctx context.Context, key string, obj *storage.ObjectHandle, data []byte, expectedETag string) (string, error) {
	etag, err := b.write(ctx, obj, data)
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusPreconditionFailed {
			return "", WithContext(ErrConflict, map[string]interface{}{
				"key":      key,
				"expected": expectedETag,
			})
		}
		return "", err
	}
	return etag, nil
}

func (b *GCSBackend) write(ctx context.Context, obj *storage.ObjectHandle, data []byte) (string, error) {
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return strconv.FormatInt(writer.Attrs().Generation, 10), nil
}

func (b *GCSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}

	return keys, nil
}

func (b *GCSBackend) Ping(ctx context.Context) error {
	_, err := b.client.Bucket(b.bucket).Attrs(ctx)
	return err
}

func (b *GCSBackend) Close() error {
	return b.client.Close()
}
