package ninjadb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

const documentExt = ".json"

// FileStore keeps one JSON object per document in a blob Backend, under
// <collection>/<id>.json. Ids are sequential integers drawn from a Sequence,
// so documents come back from Fetch in insertion order.
type FileStore struct {
	backend Backend
	seq     Sequence
	retry   RetryConfig
	logger  Logger
}

// NewFileStore creates a file store. A nil seq keeps the id counters in
// the backend itself.
func NewFileStore(backend Backend, seq Sequence, retry RetryConfig, logger Logger) *FileStore {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if seq == nil {
		seq = NewBlobSequence(backend, retry, logger, nil)
	}
	return &FileStore{
		backend: backend,
		seq:     seq,
		retry:   retry,
		logger:  logger,
	}
}

func documentKey(collection string, id int64) string {
	return collection + "/" + FormatIntID(id) + documentExt
}

func (s *FileStore) Kind() BackendKind { return KindFile }

func (s *FileStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	data, err := encodeDocument(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	id, err := s.seq.Next(ctx, collection)
	if err != nil {
		return "", err
	}

	if _, err := s.backend.PutIfAbsent(ctx, documentKey(collection, id), data); err != nil {
		if errors.Is(err, ErrConflict) {
			// The counter fell behind the stored documents
			s.logger.Error("sequence issued an id that is already taken",
				"collection", collection, "id", id)
		}
		return "", err
	}
	return FormatIntID(id), nil
}

func (s *FileStore) Get(ctx context.Context, collection, id string) (Record, error) {
	n, err := ParseIntID(id)
	if err != nil {
		return Record{}, err
	}
	data, err := s.backend.Get(ctx, documentKey(collection, n))
	if err != nil {
		return Record{}, err
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: FormatIntID(n), Fields: doc}, nil
}

// Edit patches the stored document with a conditional write, re-reading
// and re-applying the patch when another writer got there first.
func (s *FileStore) Edit(ctx context.Context, collection, id string, fields Document) error {
	n, err := ParseIntID(id)
	if err != nil {
		return err
	}
	key := documentKey(collection, n)

	retries, err := retryOnConflict(ctx, s.retry, func() error {
		data, etag, err := s.backend.GetWithETag(ctx, key)
		if err != nil {
			return err
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return err
		}
		for k, v := range fields {
			doc[k] = v
		}
		patched, err := encodeDocument(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		_, err = s.backend.PutIfMatch(ctx, key, patched, etag)
		return err
	})
	if retries > 0 {
		s.logger.Debug("edit retried after concurrent write", "key", key, "retries", retries)
	}
	if errors.Is(err, ErrConflict) {
		return WithContext(ErrConflict, map[string]interface{}{
			"key":     key,
			"retries": retries,
		})
	}
	return err
}

func (s *FileStore) Delete(ctx context.Context, collection, id string) error {
	n, err := ParseIntID(id)
	if err != nil {
		return err
	}
	err = s.backend.Delete(ctx, documentKey(collection, n))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *FileStore) Fetch(ctx context.Context, collection string, limit int, filters []Filter) ([]Record, error) {
	ids, err := s.ids(ctx, collection)
	if err != nil {
		return nil, err
	}

	match := compilePredicate(filters)
	records := make([]Record, 0)
	for _, id := range ids {
		data, err := s.backend.Get(ctx, documentKey(collection, id))
		if errors.Is(err, ErrNotFound) {
			continue // deleted since listing
		}
		if err != nil {
			return nil, err
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("document %s/%d: %w", collection, id, err)
		}
		if !match.Match(doc) {
			continue
		}
		records = append(records, Record{ID: FormatIntID(id), Fields: doc})
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

// ids lists the collection's document ids in ascending order.
func (s *FileStore) ids(ctx context.Context, collection string) ([]int64, error) {
	keys, err := s.backend.List(ctx, collection+"/")
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		name := path.Base(key)
		if path.Dir(key) != collection || !strings.HasSuffix(name, documentExt) {
			continue
		}
		id, err := ParseIntID(strings.TrimSuffix(name, documentExt))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	if p, ok := s.seq.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("sequence: %w", err)
		}
	}
	return s.backend.Ping(ctx)
}

func (s *FileStore) Close() error {
	var errs []error
	if c, ok := s.seq.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.backend.Close())
	return errors.Join(errs...)
}
