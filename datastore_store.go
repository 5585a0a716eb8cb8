package ninjadb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

// Datastore rejects indexed strings longer than this
const datastoreMaxIndexedString = 1500

// DatastoreStore implements DocumentStore on Cloud Datastore. The
// collection is the entity kind; ids are the numeric ids Datastore
// allocates for incomplete keys.
type DatastoreStore struct {
	client *datastore.Client
	logger Logger
}

// NewDatastoreStore connects to Datastore. DATASTORE_EMULATOR_HOST is
// honored by the client library.
func NewDatastoreStore(ctx context.Context, projectID string, logger Logger, opts ...option.ClientOption) (*DatastoreStore, error) {
	client, err := datastore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return NewDatastoreStoreFromClient(client, logger), nil
}

// NewDatastoreStoreFromClient wraps an existing client
func NewDatastoreStoreFromClient(client *datastore.Client, logger Logger) *DatastoreStore {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &DatastoreStore{client: client, logger: logger}
}

func (s *DatastoreStore) Kind() BackendKind { return KindDatastore }

func (s *DatastoreStore) key(collection, id string) (*datastore.Key, error) {
	n, err := ParseIntID(id)
	if err != nil {
		return nil, err
	}
	return datastore.IDKey(collection, n, nil), nil
}

func (s *DatastoreStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	props := toPropertyList(doc)
	key, err := s.client.Put(ctx, datastore.IncompleteKey(collection, nil), &props)
	if err != nil {
		return "", fmt.Errorf("datastore put: %w", err)
	}
	return FormatIntID(key.ID), nil
}

func (s *DatastoreStore) Get(ctx context.Context, collection, id string) (Record, error) {
	key, err := s.key(collection, id)
	if err != nil {
		return Record{}, err
	}

	var props datastore.PropertyList
	if err := s.client.Get(ctx, key, &props); err != nil {
		return Record{}, mapDatastoreError(err)
	}
	return Record{ID: FormatIntID(key.ID), Fields: fromPropertyList(props)}, nil
}

// Edit reads, patches and writes the entity in one transaction.
func (s *DatastoreStore) Edit(ctx context.Context, collection, id string, fields Document) error {
	key, err := s.key(collection, id)
	if err != nil {
		return err
	}

	_, err = s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var props datastore.PropertyList
		if err := tx.Get(key, &props); err != nil {
			return err
		}
		doc := fromPropertyList(props)
		for k, v := range fields {
			doc[k] = v
		}
		patched := toPropertyList(doc)
		_, err := tx.Put(key, &patched)
		return err
	})
	return mapDatastoreError(err)
}

func (s *DatastoreStore) Delete(ctx context.Context, collection, id string) error {
	key, err := s.key(collection, id)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("datastore delete: %w", err)
	}
	return nil
}

func (s *DatastoreStore) Fetch(ctx context.Context, collection string, limit int, filters []Filter) ([]Record, error) {
	q := datastore.NewQuery(collection)
	for _, f := range datastoreFilters(filters) {
		q = q.FilterField(f.Field, f.Op, f.Value)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entities []datastore.PropertyList
	keys, err := s.client.GetAll(ctx, q, &entities)
	if err != nil {
		return nil, fmt.Errorf("datastore query: %w", err)
	}

	records := make([]Record, len(keys))
	for i, key := range keys {
		records[i] = Record{ID: FormatIntID(key.ID), Fields: fromPropertyList(entities[i])}
	}
	return records, nil
}

func (s *DatastoreStore) Ping(ctx context.Context) error {
	q := datastore.NewQuery("__kind__").KeysOnly().Limit(1)
	_, err := s.client.GetAll(ctx, q, nil)
	return err
}

func (s *DatastoreStore) Close() error {
	return s.client.Close()
}

// datastoreFilter is one FilterField call
type datastoreFilter struct {
	Field string
	Op    string
	Value any
}

// datastoreFilters translates filter triples into Datastore query filters.
// Datastore spells equality "=".
func datastoreFilters(filters []Filter) []datastoreFilter {
	out := make([]datastoreFilter, len(filters))
	for i, f := range filters {
		op := string(f.Op)
		if f.Op == OpEqual {
			op = "="
		}
		out[i] = datastoreFilter{Field: f.Field, Op: op, Value: f.Value}
	}
	return out
}

func toPropertyList(doc Document) datastore.PropertyList {
	names := make([]string, 0, len(doc))
	for k := range doc {
		names = append(names, k)
	}
	sort.Strings(names)

	props := make(datastore.PropertyList, 0, len(doc))
	for _, name := range names {
		v := toDatastoreValue(doc[name])
		s, isString := v.(string)
		props = append(props, datastore.Property{
			Name:    name,
			Value:   v,
			NoIndex: isString && len(s) > datastoreMaxIndexedString,
		})
	}
	return props
}

func toDatastoreValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return &datastore.Entity{Properties: toPropertyList(Document(val))}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toDatastoreValue(item)
		}
		return out
	}
	return v
}

func fromPropertyList(props datastore.PropertyList) Document {
	doc := make(Document, len(props))
	for _, p := range props {
		doc[p.Name] = fromDatastoreValue(p.Value)
	}
	return doc
}

func fromDatastoreValue(v any) any {
	switch val := v.(type) {
	case *datastore.Entity:
		if val == nil {
			return nil
		}
		return map[string]any(fromPropertyList(val.Properties))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromDatastoreValue(item)
		}
		return out
	case *datastore.Key:
		if val == nil {
			return nil
		}
		return val.String()
	}
	if nv, err := normalizeValue(v); err == nil {
		return nv
	}
	return v
}

func mapDatastoreError(err error) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("datastore: %w", err)
	}
	return nil
}
