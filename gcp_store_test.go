package ninjadb

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emulatorProject() string {
	return firstNonEmpty(os.Getenv("GOOGLE_CLOUD_PROJECT"), "ninjadb-test")
}

// TestIntegration_DatastoreStore needs a Datastore emulator:
//
//	gcloud beta emulators datastore start --host-port=localhost:8081
//	DATASTORE_EMULATOR_HOST=localhost:8081 go test -run DatastoreStore -v
func TestIntegration_DatastoreStore(t *testing.T) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	store, err := NewDatastoreStore(ctx, emulatorProject(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	RunDocumentStoreTests(t, func(t *testing.T) DocumentStore { return store })

	t.Run("InvalidID", func(t *testing.T) {
		_, err := store.Get(ctx, "User", "not-a-number")
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

// TestIntegration_FirestoreStore needs a Firestore emulator:
//
//	gcloud emulators firestore start --host-port=localhost:8080
//	FIRESTORE_EMULATOR_HOST=localhost:8080 go test -run FirestoreStore -v
func TestIntegration_FirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	store, err := NewFirestoreStore(ctx, emulatorProject(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	RunDocumentStoreTests(t, func(t *testing.T) DocumentStore { return store })

	t.Run("MissingDocument", func(t *testing.T) {
		_, err := store.Get(ctx, suiteCollection(), "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)

		err = store.Edit(ctx, suiteCollection(), "does-not-exist", Document{"a": int64(1)})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
