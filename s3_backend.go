package ninjadb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Backend implements Backend using AWS S3 (or S3-compatible storage)
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend creates a new S3 backend
func NewS3Backend(client *s3.Client, bucket string) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
	}
}

// NewS3BackendFromConfig loads credentials from the default AWS chain.
// A non-empty endpoint switches to path-style addressing for
// S3-compatible services.
func NewS3BackendFromConfig(ctx context.Context, bucket, region, endpoint string) (*S3Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Backend(client, bucket), nil
}

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, _, err := b.GetWithETag(ctx, key)
	return data, err
}

func (b *S3Backend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.put(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete reports ErrNotFound for missing keys; S3 itself treats that as success.
func (b *S3Backend) Delete(ctx context.Context, key string) error {
	exists, err := b.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	return mapS3Error(err)
}

func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if errors.Is(mapS3Error(err), ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *S3Backend) GetWithETag(ctx context.Context, key string) ([]byte, string, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", mapS3Error(err)
	}
	defer func() { _ = result.Body.Close() }() //nolint:errcheck // Deferred close

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", err
	}
	return data, trimETag(result.ETag), nil
}

// PutIfMatch relies on the If-Match precondition of PutObject, so the
// check and the write are a single atomic request.
func (b *S3Backend) PutIfMatch(ctx context.Context, key string, data []byte, expectedETag string) (string, error) {
	etag, err := b.put(ctx, &s3.PutObjectInput{
		Bucket:  aws.String(b.bucket),
		Key:     aws.String(key),
		Body:    bytes.NewReader(data),
		IfMatch: aws.String(`"` + expectedETag + `"`),
	})
	if errors.Is(err, ErrConflict) {
		return "", WithContext(ErrConflict, map[string]interface{}{
			"key":      key,
			"expected": expectedETag,
		})
	}
	return etag, err
}

func (b *S3Backend) PutIfAbsent(ctx context.Context, key string, data []byte) (string, error) {
	etag, err := b.put(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
	})
	if errors.Is(err, ErrConflict) {
		return "", WithContext(ErrConflict, map[string]interface{}{
			"key":    key,
			"reason": "already exists",
		})
	}
	return etag, err
}

func (b *S3Backend) put(ctx context.Context, input *s3.PutObjectInput) (string, error) {
	input.ContentType = aws.String("application/json")
	out, err := b.client.PutObject(ctx, input)
	if err != nil {
		return "", mapS3Error(err)
	}
	return trimETag(out.ETag), nil
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}

	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error(err)
		}
		for _, obj := range output.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

func (b *S3Backend) Ping(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	return mapS3Error(err)
}

func (b *S3Backend) Close() error {
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (b *S3Backend) EnsureBucket(ctx context.Context) error {
	if err := b.Ping(ctx); err == nil {
		return nil
	}
	_, err := b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(b.bucket)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code := apiErr.ErrorCode()
			if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				return nil
			}
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func trimETag(etag *string) string {
	return strings.Trim(aws.ToString(etag), `"`)
}

func mapS3Error(err error) error {
	if err == nil {
		return nil
	}

	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return ErrNotFound
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusPreconditionFailed, http.StatusConflict:
			return ErrConflict
		case http.StatusForbidden:
			return ErrUnauthorized
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "PreconditionFailed", "ConditionalRequestConflict":
			return ErrConflict
		case "AccessDenied":
			return ErrUnauthorized
		}
	}
	return err
}
