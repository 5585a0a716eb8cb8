package ninjadb

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suiteCollectionSeq atomic.Int64

// suiteCollection returns a collection name unique to this process run, so
// shared databases (emulators, containers) never see leftovers.
func suiteCollection() string {
	return fmt.Sprintf("Suite%d_%d", time.Now().UnixNano(), suiteCollectionSeq.Add(1))
}

// RunDocumentStoreTests exercises the behavior every DocumentStore shares.
func RunDocumentStoreTests(t *testing.T, open func(t *testing.T) DocumentStore) {
	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := suiteCollection()

		id, err := store.Create(ctx, coll, Document{"name": "Test User", "age": int64(31), "score": 2.5, "rating": 2.0, "deleted": false})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		rec, err := store.Get(ctx, coll, id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "Test User", rec.Fields["name"])
		assert.Equal(t, int64(31), rec.Fields["age"])
		assert.Equal(t, 2.5, rec.Fields["score"])
		assert.Equal(t, 2.0, rec.Fields["rating"])
		assert.IsType(t, float64(0), rec.Fields["rating"])
		assert.Equal(t, false, rec.Fields["deleted"])
		assert.NotContains(t, rec.Fields, IDField)
	})

	t.Run("EditChangesOnlyNamedFields", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := suiteCollection()

		id, err := store.Create(ctx, coll, Document{"name": "Ana", "email": "ana@example.com", "secret_number": int64(7)})
		require.NoError(t, err)

		require.NoError(t, store.Edit(ctx, coll, id, Document{"secret_number": int64(19)}))

		rec, err := store.Get(ctx, coll, id)
		require.NoError(t, err)
		assert.Equal(t, int64(19), rec.Fields["secret_number"])
		assert.Equal(t, "Ana", rec.Fields["name"])
		assert.Equal(t, "ana@example.com", rec.Fields["email"])
	})

	t.Run("EditMissingIsNotFound", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := suiteCollection()

		id, err := store.Create(ctx, coll, Document{"name": "gone"})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, coll, id))

		err = store.Edit(ctx, coll, id, Document{"name": "back"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteThenGet", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := suiteCollection()

		id, err := store.Create(ctx, coll, Document{"name": "Bo"})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, coll, id))
		_, err = store.Get(ctx, coll, id)
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting again is a no-op
		assert.NoError(t, store.Delete(ctx, coll, id))
	})

	t.Run("FetchEmptyCollection", func(t *testing.T) {
		records, err := open(t).Fetch(context.Background(), suiteCollection(), 0, nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("FetchLimit", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := suiteCollection()

		for i := 0; i < 5; i++ {
			_, err := store.Create(ctx, coll, Document{"n": int64(i)})
			require.NoError(t, err)
		}

		records, err := store.Fetch(ctx, coll, 3, nil)
		require.NoError(t, err)
		assert.Len(t, records, 3)

		records, err = store.Fetch(ctx, coll, 0, nil)
		require.NoError(t, err)
		assert.Len(t, records, 5)

		records, err = store.Fetch(ctx, coll, 10, nil)
		require.NoError(t, err)
		assert.Len(t, records, 5)
	})

	t.Run("FetchOperators", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := suiteCollection()

		for _, age := range []int64{20, 30, 40} {
			_, err := store.Create(ctx, coll, Document{"name": fmt.Sprintf("age-%d", age), "age": age})
			require.NoError(t, err)
		}

		tests := []struct {
			op   Operator
			want []string
		}{
			{OpEqual, []string{"age-30"}},
			{OpGreater, []string{"age-40"}},
			{OpLess, []string{"age-20"}},
			{OpGreaterEqual, []string{"age-30", "age-40"}},
			{OpLessEqual, []string{"age-20", "age-30"}},
		}
		for _, tt := range tests {
			records, err := store.Fetch(ctx, coll, 0, []Filter{F("age", tt.op, int64(30))})
			require.NoError(t, err, "operator %s", tt.op)
			assert.ElementsMatch(t, tt.want, suiteNames(records), "operator %s", tt.op)
		}
	})

	t.Run("FetchFiltersAreANDed", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := suiteCollection()

		docs := []Document{
			{"name": "Matej", "age": int64(35), "deleted": false},
			{"name": "Matej", "age": int64(25), "deleted": false},
			{"name": "Matej", "age": int64(45), "deleted": true},
			{"name": "Ana", "age": int64(40), "deleted": false},
		}
		for _, d := range docs {
			_, err := store.Create(ctx, coll, d)
			require.NoError(t, err)
		}

		records, err := store.Fetch(ctx, coll, 0, []Filter{
			Eq("name", "Matej"),
			F("age", OpGreater, int64(30)),
			Eq("deleted", false),
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, int64(35), records[0].Fields["age"])
	})
}

func suiteNames(records []Record) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, fmt.Sprint(r.Fields["name"]))
	}
	sort.Strings(names)
	return names
}
