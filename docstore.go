package ninjadb

import "context"

// BackendKind names the database a DocumentStore talks to.
type BackendKind string

const (
	KindFile      BackendKind = "file"
	KindDatastore BackendKind = "datastore"
	KindFirestore BackendKind = "firestore"
	KindMongo     BackendKind = "mongo"
)

// DocumentStore is implemented once per database. Implementations receive
// filters that are already validated and normalized, and documents without
// an id field.
//
// Get and Edit report ErrNotFound for unknown ids. Delete of an unknown id
// is not an error. Fetch with limit <= 0 returns every match.
type DocumentStore interface {
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Edit(ctx context.Context, collection, id string, fields Document) error
	Delete(ctx context.Context, collection, id string) error
	Fetch(ctx context.Context, collection string, limit int, filters []Filter) ([]Record, error)
	Kind() BackendKind
	Ping(ctx context.Context) error
	Close() error
}
