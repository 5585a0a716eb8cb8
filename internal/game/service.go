package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/adrianmcphee/ninjadb"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretMax is the upper bound of the secret number range [1, max].
const DefaultSecretMax = 30

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrNoSession     = errors.New("no active session")
	ErrInvalidGuess  = errors.New("guess must be a whole number")
)

// MsgWrongPassword is shown when a login uses the wrong password.
const MsgWrongPassword = "Sorry, your password is not correct."

// Outcome classifies a guess against the secret number.
type Outcome int

const (
	Correct Outcome = iota
	TooHigh
	TooLow
)

// GuessResult is the outcome of one guess and the message shown for it.
type GuessResult struct {
	Outcome Outcome
	Guess   int
	Message string
}

// Options configures a Service.
type Options struct {
	SecretMax int
	// Intn returns a number in [0, n). Defaults to math/rand/v2.
	Intn       func(n int) int
	BcryptCost int
}

// Service implements registration, login and the guessing game.
type Service struct {
	users     *Users
	logger    *zap.Logger
	secretMax int
	intn      func(n int) int
	cost      int
}

// NewService creates the game service. A nil logger disables logging.
func NewService(users *Users, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SecretMax <= 0 {
		opts.SecretMax = DefaultSecretMax
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:     users,
		logger:    logger,
		secretMax: opts.SecretMax,
		intn:      opts.Intn,
		cost:      opts.BcryptCost,
	}
}

// Users returns the repository the service works on
func (s *Service) Users() *Users {
	return s.users
}

// SecretMax is the largest secret number the service draws
func (s *Service) SecretMax() int {
	return s.secretMax
}

func (s *Service) newSecret() int {
	return s.intn(s.secretMax) + 1
}

// Login signs a user in by email, registering them on first sight, and
// returns the user with a freshly rotated session token.
func (s *Service) Login(ctx context.Context, name, email, password string) (*User, error) {
	user, err := s.users.ActiveByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user = &User{
			Name:         name,
			Email:        email,
			Password:     string(hash),
			SecretNumber: s.newSecret(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
		s.logger.Info("user registered", zap.String("id", user.ID), zap.String("email", email))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Info("login rejected", zap.String("id", user.ID))
		return nil, ErrWrongPassword
	}

	token := ninjadb.NewID()
	if err := s.users.Update(ctx, user.ID, ninjadb.Fields{"session_token": token}); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	user.SessionToken = &token
	return user, nil
}

// Current returns the active user holding token, or nil.
func (s *Service) Current(ctx context.Context, token string) (*User, error) {
	return s.users.ActiveBySession(ctx, token)
}

func (s *Service) requireSession(ctx context.Context, token string) (*User, error) {
	user, err := s.users.ActiveBySession(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoSession
	}
	return user, nil
}

// Logout clears the session token. An unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	user, err := s.users.ActiveBySession(ctx, token)
	if err != nil || user == nil {
		return err
	}
	return s.users.Update(ctx, user.ID, ninjadb.Fields{"session_token": nil})
}

// Guess compares the guess with the user's secret number. A correct guess
// draws a new secret.
func (s *Service) Guess(ctx context.Context, token, guess string) (GuessResult, error) {
	n, err := strconv.Atoi(strings.TrimSpace(guess))
	if err != nil {
		return GuessResult{}, ErrInvalidGuess
	}

	user, err := s.requireSession(ctx, token)
	if err != nil {
		return GuessResult{}, err
	}

	switch {
	case n == user.SecretNumber:
		secret := s.newSecret()
		if err := s.users.Update(ctx, user.ID, ninjadb.Fields{"secret_number": secret}); err != nil {
			return GuessResult{}, fmt.Errorf("failed to store new secret: %w", err)
		}
		s.logger.Debug("secret guessed", zap.String("id", user.ID), zap.Int("guess", n))
		return GuessResult{
			Outcome: Correct,
			Guess:   n,
			Message: fmt.Sprintf("Correct! The secret number is %d", n),
		}, nil
	case n > user.SecretNumber:
		return GuessResult{Outcome: TooHigh, Guess: n, Message: "Your guess is not correct... try something smaller."}, nil
	default:
		return GuessResult{Outcome: TooLow, Guess: n, Message: "Your guess is not correct... try something bigger."}, nil
	}
}

// UpdateProfile changes the name and email of the signed-in user.
func (s *Service) UpdateProfile(ctx context.Context, token, name, email string) (*User, error) {
	user, err := s.requireSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user.ID, ninjadb.Fields{"name": name, "email": email}); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.Name, user.Email = name, email
	return user, nil
}

// DeleteAccount soft-deletes the signed-in user and ends the session.
func (s *Service) DeleteAccount(ctx context.Context, token string) error {
	user, err := s.requireSession(ctx, token)
	if err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.logger.Info("user soft-deleted", zap.String("id", user.ID))
	return nil
}
