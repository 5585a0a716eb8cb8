package game

import (
	"context"
	"testing"

	"github.com/adrianmcphee/ninjadb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *ninjadb.Store {
	t.Helper()
	backend, err := ninjadb.NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)
	docs := ninjadb.NewFileStore(backend, nil, ninjadb.DefaultRetryConfig(), nil)
	t.Cleanup(func() { _ = docs.Close() })
	return ninjadb.NewStore(docs)
}

// sequence returns an Intn that yields the given values in turn.
func sequence(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[i%len(values)]
		i++
		return v % n
	}
}

func newTestService(t *testing.T, intn func(int) int) *Service {
	t.Helper()
	return NewService(NewUsers(newTestStore(t)), nil, Options{
		Intn:       intn,
		BcryptCost: bcrypt.MinCost,
	})
}

func TestLoginRegistersUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	user, err := svc.Login(ctx, "Test User", "test@test.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "1", user.ID)
	assert.Equal(t, "Test User", user.Name)
	assert.NotEqual(t, "secret", user.Password)
	assert.GreaterOrEqual(t, user.SecretNumber, 1)
	assert.LessOrEqual(t, user.SecretNumber, DefaultSecretMax)
	require.NotNil(t, user.SessionToken)
	assert.True(t, ninjadb.IsValidID(*user.SessionToken))

	current, err := svc.Current(ctx, *user.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)
}

func TestLoginRotatesToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	first, err := svc.Login(ctx, "Test User", "test@test.com", "secret")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "Test User", "test@test.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, *first.SessionToken, *second.SessionToken)

	stale, err := svc.Current(ctx, *first.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.Login(ctx, "Test User", "test@test.com", "secret")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "Test User", "test@test.com", "guess")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestGuessScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, sequence(11, 4))

	user, err := svc.Login(ctx, "Test User", "test@test.com", "")
	require.NoError(t, err)
	require.Equal(t, 12, user.SecretNumber)
	token := *user.SessionToken

	tests := []struct {
		guess   string
		outcome Outcome
		message string
	}{
		{"20", TooHigh, "Your guess is not correct... try something smaller."},
		{"3", TooLow, "Your guess is not correct... try something bigger."},
		{" 12 ", Correct, "Correct! The secret number is 12"},
	}
	for _, tt := range tests {
		res, err := svc.Guess(ctx, token, tt.guess)
		require.NoError(t, err, tt.guess)
		assert.Equal(t, tt.outcome, res.Outcome, tt.guess)
		assert.Equal(t, tt.message, res.Message, tt.guess)
	}

	stored, err := svc.Users().ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.SecretNumber)
}

func TestGuessErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.Guess(ctx, "no-such-token", "5")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.Guess(ctx, "", "five")
	assert.ErrorIs(t, err, ErrInvalidGuess)
}

func TestSoftDeletedUserIsHidden(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	user, err := svc.Login(ctx, "Test User", "test@test.com", "secret")
	require.NoError(t, err)
	token := *user.SessionToken

	require.NoError(t, svc.DeleteAccount(ctx, token))

	current, err := svc.Current(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, current)

	active, err := svc.Users().Active(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, active)

	stored, err := svc.Users().ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
	assert.Nil(t, stored.SessionToken)

	// the email is free again
	again, err := svc.Login(ctx, "Test User", "test@test.com", "other")
	require.NoError(t, err)
	assert.NotEqual(t, user.ID, again.ID)
}

func TestDeletedFlagHidesSessionUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	user, err := svc.Login(ctx, "Test User", "test@test.com", "secret")
	require.NoError(t, err)
	token := *user.SessionToken

	// only the flag changes; the session token stays stored
	require.NoError(t, svc.Users().Update(ctx, user.ID, ninjadb.Fields{"deleted": true}))

	current, err := svc.Current(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, current)

	byEmail, err := svc.Users().ActiveByEmail(ctx, "test@test.com")
	require.NoError(t, err)
	assert.Nil(t, byEmail)

	stored, err := svc.Users().ByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Deleted)
	require.NotNil(t, stored.SessionToken)
	assert.Equal(t, token, *stored.SessionToken)
}

func TestCurrentSkipsMalformedTokens(t *testing.T) {
	backend, err := ninjadb.NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)
	docs := ninjadb.NewFileStore(backend, nil, ninjadb.DefaultRetryConfig(), nil)
	t.Cleanup(func() { _ = docs.Close() })

	metrics := ninjadb.NewInMemoryMetrics()
	store := ninjadb.NewStoreWithObservability(docs, &ninjadb.NoOpLogger{}, metrics)
	svc := NewService(NewUsers(store), nil, Options{BcryptCost: bcrypt.MinCost})

	for _, token := range []string{"", "abc", "1 OR 1=1"} {
		user, err := svc.Current(context.Background(), token)
		require.NoError(t, err)
		assert.Nil(t, user)
	}
	assert.Zero(t, metrics.Count(ninjadb.MetricOperations))
}

func TestLogoutAndProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	user, err := svc.Login(ctx, "Test User", "test@test.com", "secret")
	require.NoError(t, err)
	token := *user.SessionToken

	updated, err := svc.UpdateProfile(ctx, token, "Renamed", "new@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	byEmail, err := svc.Users().ActiveByEmail(ctx, "new@test.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	require.NoError(t, svc.Logout(ctx, token))
	require.NoError(t, svc.Logout(ctx, token))

	current, err := svc.Current(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = svc.UpdateProfile(ctx, token, "x", "y")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestUsersActiveFilters(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(newTestStore(t))

	for i, name := range []string{"Ana", "Bo", "Cy"} {
		require.NoError(t, users.Create(ctx, &User{Name: name, Email: name + "@test.com", SecretNumber: i + 1}))
	}
	require.NoError(t, users.HardDelete(ctx, "1"))

	got, err := users.Active(ctx, 0, ninjadb.F("secret_number", ninjadb.OpGreater, 2))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Cy", got[0].Name)

	_, err = users.Active(ctx, 0, ninjadb.F("secret_number", ninjadb.OpNotEqual, 2))
	assert.ErrorIs(t, err, ninjadb.ErrUnsupportedOperator)
}
