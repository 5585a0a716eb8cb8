package ninjadb

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Store is the document mapper. It validates every call, normalizes
// payloads and filters, and records logs and metrics around the
// DocumentStore selected for this process. Invalid input never reaches
// the backend.
type Store struct {
	docs    DocumentStore
	logger  Logger
	metrics Metrics
}

// NewStore creates a store with no-op logger and metrics
func NewStore(docs DocumentStore) *Store {
	return &Store{
		docs:    docs,
		logger:  &NoOpLogger{},
		metrics: &NoOpMetrics{},
	}
}

// NewStoreWithLogger creates a new store with a custom logger
func NewStoreWithLogger(docs DocumentStore, logger Logger) *Store {
	return &Store{
		docs:    docs,
		logger:  logger,
		metrics: &NoOpMetrics{},
	}
}

// NewStoreWithObservability creates a new store with logging and metrics
func NewStoreWithObservability(docs DocumentStore, logger Logger, metrics Metrics) *Store {
	return &Store{
		docs:    docs,
		logger:  logger,
		metrics: metrics,
	}
}

// SetLogger updates the logger for this store
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetMetrics updates the metrics collector for this store
func (s *Store) SetMetrics(metrics Metrics) {
	s.metrics = metrics
}

// DocumentStore returns the underlying backend store
func (s *Store) DocumentStore() DocumentStore {
	return s.docs
}

// Kind reports which database backs the store
func (s *Store) Kind() BackendKind {
	return s.docs.Kind()
}

// Create inserts doc into collection and returns the new id. Any id field
// in doc is ignored.
func (s *Store) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := s.validateCollection("create", collection); err != nil {
		return "", err
	}
	normalized, err := NormalizeDocument(doc)
	if err != nil {
		return "", s.reject("create", err)
	}

	start := time.Now()
	id, err := s.docs.Create(ctx, collection, normalized)
	s.observe("create", start, err, "collection", collection)
	if err != nil {
		return "", err
	}

	s.logger.Debug("document created", "collection", collection, "id", id)
	return id, nil
}

// Get loads one document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := s.validateTarget("get", collection, id); err != nil {
		return Record{}, err
	}

	start := time.Now()
	rec, err := s.docs.Get(ctx, collection, id)
	s.observe("get", start, err, "collection", collection, "id", id)
	if err != nil {
		return Record{}, notFoundContext(err, collection, id)
	}
	return rec, nil
}

// Edit sets the given fields on an existing document and leaves all other
// fields alone. Concurrent edits of the same field: the last writer wins.
func (s *Store) Edit(ctx context.Context, collection, id string, fields Fields) error {
	if err := s.validateTarget("edit", collection, id); err != nil {
		return err
	}
	normalized, err := NormalizeDocument(fields)
	if err != nil {
		return s.reject("edit", err)
	}
	if len(normalized) == 0 {
		return nil
	}

	start := time.Now()
	err = s.docs.Edit(ctx, collection, id, normalized)
	s.observe("edit", start, err, "collection", collection, "id", id)
	return notFoundContext(err, collection, id)
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.validateTarget("delete", collection, id); err != nil {
		return err
	}

	start := time.Now()
	err := s.docs.Delete(ctx, collection, id)
	s.observe("delete", start, err, "collection", collection, "id", id)
	return err
}

// Fetch returns the documents matching every filter, at most limit of
// them (limit <= 0 means no limit).
func (s *Store) Fetch(ctx context.Context, collection string, limit int, filters ...Filter) ([]Record, error) {
	if err := s.validateCollection("fetch", collection); err != nil {
		return nil, err
	}
	normalized, err := normalizeFilters(filters)
	if err != nil {
		return nil, s.reject("fetch", err)
	}

	start := time.Now()
	records, err := s.docs.Fetch(ctx, collection, limit, normalized)
	s.observe("fetch", start, err, "collection", collection, "filters", len(filters))
	if err != nil {
		return nil, err
	}

	s.metrics.Histogram(MetricFetchResults, float64(len(records)), "collection", collection)
	return records, nil
}

// FetchOne returns the first document matching every filter. ok is false
// when nothing matches.
func (s *Store) FetchOne(ctx context.Context, collection string, filters ...Filter) (Record, bool, error) {
	records, err := s.Fetch(ctx, collection, 1, filters...)
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}
	return records[0], true, nil
}

// Ping checks that the backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.docs.Ping(ctx)
}

// Close releases the backend client
func (s *Store) Close() error {
	return s.docs.Close()
}

func (s *Store) validateTarget(op, collection, id string) error {
	if err := s.validateCollection(op, collection); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return s.reject(op, WithContext(ErrInvalidID, map[string]interface{}{
			"collection": collection,
			"reason":     "empty id",
		}))
	}
	return nil
}

// validateCollection accepts names every backend can use as a kind,
// collection or key prefix.
func (s *Store) validateCollection(op, collection string) error {
	reason := ""
	switch {
	case collection == "":
		reason = "empty collection name"
	case strings.ContainsAny(collection, `/\$`):
		reason = "collection name contains a reserved character"
	case strings.HasPrefix(collection, "_") || strings.HasPrefix(collection, "."):
		reason = "collection name must not start with '_' or '.'"
	case strings.HasPrefix(collection, "system."):
		reason = "collection name is reserved"
	}
	if reason == "" {
		return nil
	}
	return s.reject(op, WithContext(ErrInvalidCollection, map[string]interface{}{
		"collection": collection,
		"reason":     reason,
	}))
}

// reject logs and counts a call that was refused before reaching the backend.
func (s *Store) reject(op string, err error) error {
	reason := "invalid_data"
	switch {
	case errors.Is(err, ErrUnsupportedOperator):
		reason = "unsupported_operator"
	case errors.Is(err, ErrMalformedFilter):
		reason = "malformed_filter"
	case errors.Is(err, ErrInvalidID):
		reason = "invalid_id"
	case errors.Is(err, ErrInvalidCollection):
		reason = "invalid_collection"
	}
	if errors.Is(err, ErrUnsupportedOperator) || errors.Is(err, ErrMalformedFilter) {
		s.metrics.Increment(MetricRejectedFilters, "reason", reason)
	}
	s.logger.Warn("request rejected", "operation", op, "reason", reason, "error", err)
	return err
}

func (s *Store) observe(op string, start time.Time, err error, fields ...interface{}) {
	backend := string(s.docs.Kind())
	s.metrics.Timing(MetricLatency, time.Since(start), "operation", op, "backend", backend)
	s.metrics.Increment(MetricOperations, "operation", op, "backend", backend)

	if err == nil || errors.Is(err, ErrNotFound) {
		return
	}
	s.metrics.Increment(MetricErrors, "operation", op, "backend", backend)
	s.logger.Error("backend operation failed",
		append([]interface{}{"operation", op, "backend", backend, "retryable", !IsPermanent(err), "error", err}, fields...)...)
}

func notFoundContext(err error, collection, id string) error {
	if errors.Is(err, ErrNotFound) {
		var withCtx *ErrorWithContext
		if errors.As(err, &withCtx) {
			return err
		}
		return WithContext(ErrNotFound, map[string]interface{}{
			"collection": collection,
			"id":         id,
		})
	}
	return err
}
