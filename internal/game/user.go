package game

import (
	"context"

	"github.com/adrianmcphee/ninjadb"
)

// UserCollection is where users are stored on every backend.
const UserCollection = "User"

// User is a player. Password holds a bcrypt hash.
type User struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	SessionToken *string `json:"session_token"`
	SecretNumber int     `json:"secret_number"`
	Deleted      bool    `json:"deleted"`
}

// Users is the user repository. Every lookup except ByID hides
// soft-deleted users.
type Users struct {
	coll *ninjadb.Collection[User]
}

// NewUsers creates the repository on top of store
func NewUsers(store *ninjadb.Store) *Users {
	return &Users{coll: ninjadb.NewCollection[User](store, UserCollection)}
}

func notDeleted(filters ...ninjadb.Filter) []ninjadb.Filter {
	return append([]ninjadb.Filter{ninjadb.Eq("deleted", false)}, filters...)
}

// Create stores a new user and sets u.ID
func (r *Users) Create(ctx context.Context, u *User) error {
	_, err := r.coll.Create(ctx, u)
	return err
}

// ByID loads a user by id, including soft-deleted ones.
func (r *Users) ByID(ctx context.Context, id string) (*User, error) {
	return r.coll.Get(ctx, id)
}

// ActiveBySession returns the active user holding token, or nil. Tokens
// that were never issued by Login are not looked up.
func (r *Users) ActiveBySession(ctx context.Context, token string) (*User, error) {
	if !ninjadb.IsValidID(token) {
		return nil, nil
	}
	return r.coll.FetchOne(ctx, notDeleted(ninjadb.Eq("session_token", token))...)
}

// ActiveByEmail returns the active user registered with email, or nil.
func (r *Users) ActiveByEmail(ctx context.Context, email string) (*User, error) {
	return r.coll.FetchOne(ctx, notDeleted(ninjadb.Eq("email", email))...)
}

// Active lists up to limit active users matching filters.
func (r *Users) Active(ctx context.Context, limit int, filters ...ninjadb.Filter) ([]*User, error) {
	return r.coll.Fetch(ctx, limit, notDeleted(filters...)...)
}

// Update sets the given fields on a user
func (r *Users) Update(ctx context.Context, id string, fields ninjadb.Fields) error {
	return r.coll.Edit(ctx, id, fields)
}

// SoftDelete flags the user as deleted and ends their session.
func (r *Users) SoftDelete(ctx context.Context, id string) error {
	return r.coll.Edit(ctx, id, ninjadb.Fields{"deleted": true, "session_token": nil})
}

// HardDelete removes the user document
func (r *Users) HardDelete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}
