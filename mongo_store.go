package ninjadb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoIDField = "_id"

// mongoOperators maps ordering operators to their query selectors.
// Equality is expressed as a plain {field: value} match.
var mongoOperators = map[Operator]string{
	OpGreater:      "$gt",
	OpLess:         "$lt",
	OpGreaterEqual: "$gte",
	OpLessEqual:    "$lte",
}

// MongoStore implements DocumentStore on MongoDB and on Cosmos DB's
// Mongo API. Ids are ObjectIDs rendered as hex.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger Logger
}

// NewMongoStore connects to cfg.URI and uses cfg.Database.
func NewMongoStore(ctx context.Context, cfg MongoConfig, logger Logger) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return NewMongoStoreFromClient(client, cfg.Database, logger), nil
}

// NewMongoStoreFromClient wraps a connected client
func NewMongoStoreFromClient(client *mongo.Client, database string, logger Logger) *MongoStore {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &MongoStore{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}
}

func (s *MongoStore) Kind() BackendKind { return KindMongo }

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, WithContext(ErrInvalidID, map[string]interface{}{
			"id":     id,
			"reason": "expected a 24 character hex ObjectID",
		})
	}
	return oid, nil
}

func (s *MongoStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, bson.M(doc))
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprint(res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Record, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return Record{}, err
	}

	var raw bson.M
	err = s.db.Collection(collection).FindOne(ctx, bson.M{mongoIDField: oid}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("mongo find: %w", err)
	}
	return mongoRecord(raw), nil
}

func (s *MongoStore) Edit(ctx context.Context, collection, id string, fields Document) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{mongoIDField: oid},
		bson.M{"$set": bson.M(fields)},
	)
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{mongoIDField: oid}); err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}

func (s *MongoStore) Fetch(ctx context.Context, collection string, limit int, filters []Filter) ([]Record, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, mongoFilter(filters), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}

	records := make([]Record, len(raws))
	for i, raw := range raws {
		records[i] = mongoRecord(raw)
	}
	return records, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mongoFilter translates filter triples into a query document: none
// matches everything, one is a direct selector, several are joined
// with $and.
func mongoFilter(filters []Filter) bson.M {
	switch len(filters) {
	case 0:
		return bson.M{}
	case 1:
		return mongoClause(filters[0])
	}

	clauses := make(bson.A, len(filters))
	for i, f := range filters {
		clauses[i] = mongoClause(f)
	}
	return bson.M{"$and": clauses}
}

func mongoClause(f Filter) bson.M {
	if op, ok := mongoOperators[f.Op]; ok {
		return bson.M{f.Field: bson.M{op: f.Value}}
	}
	return bson.M{f.Field: f.Value}
}

func mongoRecord(raw bson.M) Record {
	var id string
	switch v := raw[mongoIDField].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	default:
		id = fmt.Sprint(v)
	}

	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == mongoIDField || k == IDField {
			continue
		}
		doc[k] = fromMongoValue(v)
	}
	return Record{ID: id, Fields: doc}
}

func fromMongoValue(v any) any {
	switch val := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromMongoValue(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = fromMongoValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromMongoValue(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	}
	if nv, err := normalizeValue(v); err == nil {
		return nv
	}
	return v
}
