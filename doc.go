// Package ninjadb is a small object-document mapper over four NoSQL
// backends: a local file store, Google Cloud Firestore, Google Cloud
// Datastore and MongoDB (including Azure Cosmos DB through its Mongo API).
//
// # Overview
//
// The backend is chosen once per process from the hosting environment and
// every call goes through the same five operations: create, get, edit,
// delete and a filtered fetch. Filters are (field, operator, value) triples
// combined with AND, translated into each backend's native query form.
//
//   - App Engine (GAE_APPLICATION): Firestore, or Datastore with GAE_DATABASE=datastore
//   - Azure App Service (APPSETTING_WEBSITE_SITE_NAME): Cosmos DB via APPSETTING_MONGOURL
//   - Heroku (DYNO): MongoDB via MONGODB_URI
//   - anywhere else: the file store under DATA_PATH
//
// # Quick Start
//
//	docs, _, err := ninjadb.Connect(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer docs.Close()
//
//	store := ninjadb.NewStore(docs)
//	users := ninjadb.NewCollection[User](store)
//
//	id, err := users.Create(ctx, &User{Name: "Alice", Email: "alice@example.com"})
//	u, err := users.Get(ctx, id)
//	err = users.Edit(ctx, id, ninjadb.Fields{"name": "Alicia"})
//	adults, err := users.Fetch(ctx, 10, ninjadb.F("age", ninjadb.OpGreaterEqual, 18))
//
// # Core Concepts
//
// DocumentStore: one implementation per backend (FileStore, FirestoreStore,
// DatastoreStore, MongoStore). Ids are strings at this boundary whatever the
// backend uses natively.
//
// Store: validates collection names, ids, payloads and filters before any
// backend call, and records logs and metrics around each operation.
//
// Collection: typed access to one collection. Values convert to documents
// through their JSON form and receive their id in the field tagged "id".
//
// Backend: byte-level object storage under the file store (filesystem, GCS,
// S3, MinIO). Documents are JSON objects at <collection>/<id>.json with
// sequential integer ids from a Sequence (blob compare-and-swap or Redis).
//
// # Filters
//
// Supported operators are ==, >, <, >= and <=. A != filter, an unknown
// operator or a malformed triple fails with ErrUnsupportedOperator or
// ErrMalformedFilter without touching the backend.
//
//	ninjadb.Eq("deleted", false)
//	ninjadb.F("secret_number", ninjadb.OpGreater, 20)
//	ninjadb.ParseFilterString(`email == "alice@example.com"`)
//
// # Error Handling
//
//	_, err := users.Get(ctx, id)
//	if ninjadb.IsNotFound(err) {
//	    // missing document
//	}
//	if ninjadb.IsUsageError(err) {
//	    // bad filter, id or collection name; nothing reached the backend
//	}
//
// # Observability
//
//	logger, _ := ninjadb.NewProductionZapLogger()
//	metrics := ninjadb.NewPrometheusMetrics(prometheus.DefaultRegisterer)
//	store := ninjadb.NewStoreWithObservability(docs, logger, metrics)
package ninjadb
