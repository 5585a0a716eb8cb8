package ninjadb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Sequence hands out increasing integer ids per collection.
// The file store draws every new document id from one.
type Sequence interface {
	Next(ctx context.Context, collection string) (int64, error)
}

// Sequence sources, used as the metrics "source" tag
const (
	SequenceSourceBlob  = "blob"
	SequenceSourceRedis = "redis"
)

// SequenceKey is the object holding a collection's last issued id.
func SequenceKey(collection string) string {
	return collection + "/_seq"
}

// BlobSequence keeps each collection's counter as a small object next to
// its documents and advances it with conditional writes.
type BlobSequence struct {
	backend Backend
	retry   RetryConfig
	logger  Logger
	metrics Metrics
}

// NewBlobSequence creates a sequence stored in backend
func NewBlobSequence(backend Backend, retry RetryConfig, logger Logger, metrics Metrics) *BlobSequence {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}
	return &BlobSequence{
		backend: backend,
		retry:   retry,
		logger:  logger,
		metrics: metrics,
	}
}

// Next returns the next id for collection, starting at 1.
func (s *BlobSequence) Next(ctx context.Context, collection string) (int64, error) {
	key := SequenceKey(collection)
	var next int64

	retries, err := retryOnConflict(ctx, s.retry, func() error {
		data, etag, err := s.backend.GetWithETag(ctx, key)
		if errors.Is(err, ErrNotFound) {
			next = 1
			_, err = s.backend.PutIfAbsent(ctx, key, []byte("1"))
			return s.countConflict(err)
		}
		if err != nil {
			return err
		}

		current, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return WithContext(ErrInvalidData, map[string]interface{}{
				"key":    key,
				"reason": "sequence value is not an integer",
			})
		}
		next = current + 1
		_, err = s.backend.PutIfMatch(ctx, key, []byte(strconv.FormatInt(next, 10)), etag)
		return s.countConflict(err)
	})

	if err != nil {
		if errors.Is(err, ErrConflict) {
			err = WithContext(ErrSequenceRetries, map[string]interface{}{
				"key":     key,
				"retries": retries,
			})
		}
		s.logger.Error("sequence update failed", "key", key, "retries", retries, "error", err)
		return 0, err
	}

	s.metrics.Increment(MetricSequenceNext, "source", SequenceSourceBlob)
	return next, nil
}

func (s *BlobSequence) countConflict(err error) error {
	if errors.Is(err, ErrConflict) {
		s.metrics.Increment(MetricSequenceRetries, "source", SequenceSourceBlob)
	}
	return err
}

// RedisSequence uses one Redis INCR counter per collection.
type RedisSequence struct {
	redis   *redis.Client
	prefix  string
	metrics Metrics
}

// NewRedisSequence creates a Redis-backed sequence. Counter keys are
// prefix + collection.
func NewRedisSequence(client *redis.Client, prefix string, metrics Metrics) *RedisSequence {
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}
	return &RedisSequence{
		redis:   client,
		prefix:  prefix,
		metrics: metrics,
	}
}

func (s *RedisSequence) Next(ctx context.Context, collection string) (int64, error) {
	if s.redis == nil {
		return 0, ErrBackendUnavailable
	}

	val, err := s.redis.Incr(ctx, s.prefix+collection).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	s.metrics.Increment(MetricSequenceNext, "source", SequenceSourceRedis)
	return val, nil
}

// Ping checks that Redis is reachable
func (s *RedisSequence) Ping(ctx context.Context) error {
	if s.redis == nil {
		return ErrBackendUnavailable
	}
	return s.redis.Ping(ctx).Err()
}

// Close releases the Redis client
func (s *RedisSequence) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}
