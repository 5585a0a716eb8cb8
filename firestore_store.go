package ninjadb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements DocumentStore on Cloud Firestore (native mode).
// Document ids are the random ids Firestore generates.
type FirestoreStore struct {
	client *firestore.Client
	logger Logger
}

// NewFirestoreStore connects to Firestore. FIRESTORE_EMULATOR_HOST is
// honored by the client library.
func NewFirestoreStore(ctx context.Context, projectID string, logger Logger, opts ...option.ClientOption) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewFirestoreStoreFromClient(client, logger), nil
}

// NewFirestoreStoreFromClient wraps an existing client
func NewFirestoreStoreFromClient(client *firestore.Client, logger Logger) *FirestoreStore {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &FirestoreStore{client: client, logger: logger}
}

func (s *FirestoreStore) Kind() BackendKind { return KindFirestore }

func (s *FirestoreStore) doc(collection, id string) (*firestore.DocumentRef, error) {
	if id == "" {
		return nil, WithContext(ErrInvalidID, map[string]interface{}{
			"reason": "empty id",
		})
	}
	ref := s.client.Collection(collection).Doc(id)
	if ref == nil {
		// Doc returns nil for ids containing a slash
		return nil, WithContext(ErrInvalidID, map[string]interface{}{
			"id":     id,
			"reason": "not a document id",
		})
	}
	return ref, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	ref := s.client.Collection(collection).NewDoc()
	if _, err := ref.Set(ctx, map[string]any(doc)); err != nil {
		return "", fmt.Errorf("firestore set: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Record, error) {
	ref, err := s.doc(collection, id)
	if err != nil {
		return Record{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Record{}, mapFirestoreError(err)
	}
	return firestoreRecord(snap), nil
}

func (s *FirestoreStore) Edit(ctx context.Context, collection, id string, fields Document) error {
	ref, err := s.doc(collection, id)
	if err != nil {
		return err
	}
	if _, err := ref.Update(ctx, firestoreUpdates(fields)); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	ref, err := s.doc(collection, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Fetch(ctx context.Context, collection string, limit int, filters []Filter) ([]Record, error) {
	q := s.client.Collection(collection).Query
	for _, w := range firestoreWheres(filters) {
		q = q.Where(w.Path, w.Op, w.Value)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore query: %w", err)
	}

	records := make([]Record, len(snaps))
	for i, snap := range snaps {
		records[i] = firestoreRecord(snap)
	}
	return records, nil
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collections(ctx).Next()
	if errors.Is(err, iterator.Done) {
		return nil
	}
	return err
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// firestoreWhere is one Query.Where call
type firestoreWhere struct {
	Path  string
	Op    string
	Value any
}

// firestoreWheres translates filter triples into a Where chain. The filter
// operators are Firestore's own, so they pass through unchanged.
func firestoreWheres(filters []Filter) []firestoreWhere {
	out := make([]firestoreWhere, len(filters))
	for i, f := range filters {
		out[i] = firestoreWhere{Path: f.Field, Op: string(f.Op), Value: f.Value}
	}
	return out
}

// firestoreUpdates builds a field-by-field update. FieldPath keeps field
// names containing dots from being read as nested paths.
func firestoreUpdates(fields Document) []firestore.Update {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	updates := make([]firestore.Update, len(names))
	for i, name := range names {
		updates[i] = firestore.Update{FieldPath: firestore.FieldPath{name}, Value: fields[name]}
	}
	return updates
}

func firestoreRecord(snap *firestore.DocumentSnapshot) Record {
	data := snap.Data()
	doc := make(Document, len(data))
	for k, v := range data {
		doc[k] = fromFirestoreValue(v)
	}
	return Record{ID: snap.Ref.ID, Fields: doc}
}

func fromFirestoreValue(v any) any {
	switch val := v.(type) {
	case *firestore.DocumentRef:
		if val == nil {
			return nil
		}
		return val.Path
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromFirestoreValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromFirestoreValue(item)
		}
		return out
	}
	return v
}

func mapFirestoreError(err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return fmt.Errorf("firestore: %w", err)
}
