package ninjadb

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// RedisSequencePrefix namespaces the id counters kept in Redis.
const RedisSequencePrefix = "ninjadb:seq:"

type connectOptions struct {
	getenv  func(string) string
	logger  Logger
	metrics Metrics
}

// ConnectOption customizes Connect.
type ConnectOption func(*connectOptions)

// WithGetenv replaces os.Getenv as the source of configuration.
func WithGetenv(getenv func(string) string) ConnectOption {
	return func(o *connectOptions) { o.getenv = getenv }
}

// WithLogger sets the logger handed to the backend.
func WithLogger(logger Logger) ConnectOption {
	return func(o *connectOptions) { o.logger = logger }
}

// WithMetrics sets the metrics collector handed to the backend.
func WithMetrics(metrics Metrics) ConnectOption {
	return func(o *connectOptions) { o.metrics = metrics }
}

// Connect reads the environment once, detects the hosting platform and
// opens the matching backend. The returned store is meant to be held for
// the lifetime of the process.
//
// Environment variables:
//   - GAE_APPLICATION, GAE_DATABASE: App Engine (Firestore, or Datastore)
//   - APPSETTING_WEBSITE_SITE_NAME, APPSETTING_MONGOURL: Azure (Cosmos DB)
//   - DYNO, MONGODB_URI: Heroku (MongoDB)
//   - DATA_PATH, FILESTORE_BACKEND, REDIS_ADDR: local file store
//
// Example:
//
//	docs, cfg, err := ninjadb.Connect(ctx, ninjadb.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer docs.Close()
func Connect(ctx context.Context, opts ...ConnectOption) (DocumentStore, Config, error) {
	o := connectOptions{
		getenv:  os.Getenv,
		logger:  &NoOpLogger{},
		metrics: &NoOpMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := ConfigFromEnv(o.getenv)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to read configuration: %w", err)
	}

	docs, err := open(ctx, cfg, o.logger, o.metrics)
	if err != nil {
		return nil, cfg, err
	}
	return docs, cfg, nil
}

// Open creates the DocumentStore described by cfg.
func Open(ctx context.Context, cfg Config, logger Logger) (DocumentStore, error) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return open(ctx, cfg, logger, &NoOpMetrics{})
}

func open(ctx context.Context, cfg Config, logger Logger, metrics Metrics) (DocumentStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fields := []interface{}{"platform", cfg.Platform, "backend", cfg.Kind}
	if cfg.Platform == PlatformAzure {
		// App Service only surfaces warnings in its log stream
		logger.Warn("storage platform detected", fields...)
	} else {
		logger.Info("storage platform detected", fields...)
	}

	switch cfg.Kind {
	case KindDatastore:
		docs, err := NewDatastoreStore(ctx, cfg.ProjectID, logger)
		if err != nil {
			return nil, err
		}
		return docs, nil

	case KindFirestore:
		docs, err := NewFirestoreStore(ctx, cfg.ProjectID, logger)
		if err != nil {
			return nil, err
		}
		return docs, nil

	case KindMongo:
		docs, err := NewMongoStore(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return docs, nil

	case KindFile:
		return openFileStore(ctx, cfg, logger, metrics)
	}

	return nil, WithContext(ErrInvalidConfig, map[string]interface{}{
		"field":  "Kind",
		"value":  cfg.Kind,
		"reason": "unknown backend kind",
	})
}

func openFileStore(ctx context.Context, cfg Config, logger Logger, metrics Metrics) (DocumentStore, error) {
	backend, err := OpenBackend(ctx, cfg.File.Blob)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.File.Blob.Type, err)
	}

	var seq Sequence
	if cfg.File.RedisAddr != "" {
		client := redis.NewClient(RedisOptions(cfg.File))
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = backend.Close()
			return nil, fmt.Errorf("redis not available at %s: %w", cfg.File.RedisAddr, err)
		}
		seq = NewRedisSequence(client, RedisSequencePrefix, metrics)
	} else {
		seq = NewBlobSequence(backend, cfg.Retry, logger, metrics)
	}

	logger.Debug("file store opened",
		"blob_backend", cfg.File.Blob.Type,
		"location", cfg.File.Blob.Bucket,
		"redis_sequence", cfg.File.RedisAddr != "")
	return NewFileStore(backend, seq, cfg.Retry, logger), nil
}
