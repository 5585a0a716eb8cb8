package ninjadb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	SecretNumber int       `json:"secret_number"`
	Deleted      bool      `json:"deleted"`
	Token        *string   `json:"session_token"`
	JoinedAt     time.Time `json:"joined_at"`
}

type untaggedID struct {
	ID   string
	Name string
}

func newTestCollection(t *testing.T) *Collection[testUser] {
	t.Helper()
	return NewCollection[testUser](NewStore(newTestFileStore(t)), "User")
}

func TestCollectionNames(t *testing.T) {
	store := NewStore(newRecordingStore())

	assert.Equal(t, "testUser", NewCollection[testUser](store).Name())
	assert.Equal(t, "User", NewCollection[testUser](store, "User").Name())
	assert.Equal(t, "testUser", NewCollection[testUser](store, "").Name())
	assert.Same(t, store, NewCollection[testUser](store).Store())
}

func TestCollectionCreateWritesID(t *testing.T) {
	ctx := context.Background()
	users := newTestCollection(t)

	token := "abc"
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	u := &testUser{ID: "ignored", Name: "Test User", Email: "test@test.com", SecretNumber: 12, Token: &token, JoinedAt: joined}

	id, err := users.Create(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	assert.Equal(t, "1", u.ID)

	got, err := users.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, u.Name, got.Name)
	assert.Equal(t, 12, got.SecretNumber)
	require.NotNil(t, got.Token)
	assert.Equal(t, "abc", *got.Token)
	assert.True(t, joined.Equal(got.JoinedAt))
	assert.Equal(t, "1", got.ID)

	// the id is never stored as a payload field
	rec, err := users.Store().Get(ctx, "User", id)
	require.NoError(t, err)
	_, stored := rec.Fields[IDField]
	assert.False(t, stored)
}

func TestCollectionCreateNil(t *testing.T) {
	users := newTestCollection(t)
	_, err := users.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestCollectionUntaggedIDField(t *testing.T) {
	ctx := context.Background()
	items := NewCollection[untaggedID](NewStore(newTestFileStore(t)), "Item")

	item := &untaggedID{Name: "x"}
	id, err := items.Create(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)

	got, err := items.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, untaggedID{ID: id, Name: "x"}, *got)
}

func TestCollectionEditFetchDelete(t *testing.T) {
	ctx := context.Background()
	users := newTestCollection(t)

	for i, name := range []string{"Ana", "Bo", "Cy"} {
		_, err := users.Create(ctx, &testUser{Name: name, Email: name + "@test.com", SecretNumber: 10 * (i + 1)})
		require.NoError(t, err)
	}

	require.NoError(t, users.Edit(ctx, "2", Fields{"deleted": true}))

	active, err := users.Fetch(ctx, 0, Eq("deleted", false))
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Ana", active[0].Name)
	assert.Equal(t, "Cy", active[1].Name)

	limited, err := users.Fetch(ctx, 1, F("secret_number", OpGreaterEqual, 20))
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Bo", limited[0].Name)

	one, err := users.FetchOne(ctx, Eq("email", "Cy@test.com"))
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "3", one.ID)

	none, err := users.FetchOne(ctx, Eq("email", "nobody@test.com"))
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, users.Delete(ctx, "3"))
	_, err = users.Get(ctx, "3")
	assert.True(t, IsNotFound(err))
}

func TestCollectionRejectsBadFilters(t *testing.T) {
	rec := newRecordingStore()
	users := NewCollection[testUser](NewStore(rec), "User")

	_, err := users.Fetch(context.Background(), 0, F("name", OpNotEqual, "Ana"))
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	_, err = users.FetchOne(context.Background(), F("", OpEqual, "Ana"))
	assert.ErrorIs(t, err, ErrMalformedFilter)

	assert.Zero(t, rec.total())
}

func TestCollectionConversionFailure(t *testing.T) {
	rec := newRecordingStore()
	rec.records = []Record{{ID: "1", Fields: Document{"secret_number": "not a number"}}}
	users := NewCollection[testUser](NewStore(rec), "User")

	_, err := users.Fetch(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidData)
}
