// Package app is the HTTP boundary: it owns sessions and translates between
// JSON requests and the note, access, comment, and search services.
package app

import (
	"context"
	"fmt"
	"time"

	"notedeck/api/internal/access"
	"notedeck/api/internal/auth"
	"notedeck/api/internal/authpw"
	"notedeck/api/internal/comments"
	"notedeck/api/internal/notes"
	"notedeck/api/internal/search"
	"notedeck/api/internal/store"
)

// SessionStore persists issued session tokens by hash. Satisfied by the
// Redis store and by the Postgres fallback.
type SessionStore interface {
	SaveSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	LookupSession(ctx context.Context, tokenHash string) (int64, error)
	RevokeSession(ctx context.Context, tokenHash string) error
}

// Pinger reports storage connectivity for the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	Auth     *authpw.Service
	Notes    *notes.Service
	Access   *access.Service
	Comments *comments.Service
	Search   *search.Service

	sessions      SessionStore
	sessionSecret []byte
	sessionTTL    time.Duration
	db            Pinger
}

func NewService(
	authSvc *authpw.Service,
	noteSvc *notes.Service,
	accessSvc *access.Service,
	commentSvc *comments.Service,
	searchSvc *search.Service,
	sessions SessionStore,
	sessionSecret []byte,
	sessionTTL time.Duration,
	db Pinger,
) *Service {
	return &Service{
		Auth:          authSvc,
		Notes:         noteSvc,
		Access:        accessSvc,
		Comments:      commentSvc,
		Search:        searchSvc,
		sessions:      sessions,
		sessionSecret: sessionSecret,
		sessionTTL:    sessionTTL,
		db:            db,
	}
}

// Session is the resolved caller identity attached to each authenticated
// request.
type Session struct {
	UserID   int64
	Username string
}

// IssuedSession is what sign-in hands back to the client.
type IssuedSession struct {
	Token     string
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// CreateSession issues a signed token for userID and records its hash so
// logout can revoke it before expiry.
func (s *Service) CreateSession(ctx context.Context, user store.User) (IssuedSession, error) {
	expiresAt := time.Now().Add(s.sessionTTL)
	token, err := auth.IssueToken(s.sessionSecret, auth.Claims{Sub: user.ID, Exp: expiresAt.Unix()})
	if err != nil {
		return IssuedSession{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.SaveSession(ctx, auth.HashToken(token), user.ID, expiresAt); err != nil {
		return IssuedSession{}, fmt.Errorf("save session: %w", err)
	}
	return IssuedSession{Token: token, UserID: user.ID, Username: user.Username, ExpiresAt: expiresAt}, nil
}

// SessionFromToken validates the token signature and expiry, then checks the
// session store so revoked tokens stop working immediately.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.sessionSecret, token)
	if err != nil {
		return Session{}, err
	}
	userID, err := s.sessions.LookupSession(ctx, auth.HashToken(token))
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if userID != claims.Sub {
		return Session{}, auth.ErrInvalidToken
	}
	user, err := s.Auth.GetUser(ctx, userID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{UserID: user.ID, Username: user.Username}, nil
}

// Logout revokes the token's session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.RevokeSession(ctx, auth.HashToken(token))
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
