// Package authpw provides username/password credentials: registration and
// sign-in over bcrypt digests.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"notedeck/api/internal/domain"
	"notedeck/api/internal/store"
)

// ErrInvalidCredentials is deliberately undifferentiated so a caller cannot
// tell a missing username from a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore defines the storage interface for credentials
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	GetUserByID(ctx context.Context, userID int64) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
}

type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// Register creates a user. Username must be 3-20 characters, password at
// least 3. A taken username surfaces as Conflict.
func (s *Service) Register(ctx context.Context, username, password string) (store.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 20 {
		return store.User{}, domain.Validation("username must be between 3 and 20 characters")
	}
	if len(password) < 3 {
		return store.User{}, domain.Validation("password must be at least 3 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.store.CreateUser(ctx, username, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return store.User{}, domain.Conflict("username is already taken")
	}
	if err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	return store.User{ID: id, Username: username}, nil
}

// SignIn checks the password against the stored digest.
func (s *Service) SignIn(ctx context.Context, username, password string) (store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser resolves a user id, mapping a missing row to NotFound.
func (s *Service) GetUser(ctx context.Context, userID int64) (store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, domain.NotFound("user")
	}
	if err != nil {
		return store.User{}, err
	}
	return user, nil
}
