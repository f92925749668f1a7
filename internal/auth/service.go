// Package auth implements credential verification and session issuance.
//
// Passwords are stored as bcrypt hashes; plaintext never reaches storage
// or the logs. Sessions are server-side rows referenced by a random token
// handed to the browser in a cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledger/internal/core"

	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence surface the auth service needs.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, token string, now time.Time) (core.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type Service struct {
	store      Store
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewService creates an auth service. A non-positive bcrypt cost selects
// the library default.
func NewService(store Store, sessionTTL time.Duration, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Service{
		store:      store,
		sessionTTL: sessionTTL,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// SignUp registers a new account. Username matching is case-sensitive
// exact; a duplicate signup fails without touching the existing hash.
func (s *Service) SignUp(ctx context.Context, username, password, confirm string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.ErrEmptyUsername
	}
	if password == "" {
		return core.ErrEmptyPassword
	}
	if password != confirm {
		return core.ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.store.CreateUser(ctx, username, string(hash)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "User signed up", "username", username)
	return nil
}

// LogIn verifies credentials and issues a fresh session. Unknown
// usernames and hash mismatches report the same error so the endpoint
// does not leak which accounts exist. Any prior session for this browser
// context is invalidated.
func (s *Service) LogIn(ctx context.Context, username, password, priorToken string) (core.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.Session{}, core.ErrEmptyUsername
	}
	if password == "" {
		return core.Session{}, core.ErrEmptyPassword
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return core.Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.Session{}, core.ErrInvalidCredentials
	}

	if priorToken != "" {
		if err := s.store.DeleteSession(ctx, priorToken); err != nil {
			slog.WarnContext(ctx, "Failed to clear prior session", "error", err)
		}
	}

	token, err := newToken()
	if err != nil {
		return core.Session{}, fmt.Errorf("generate session token: %w", err)
	}

	session := core.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "User logged in", "username", username, "user_id", user.ID)
	return session, nil
}

// LogOut clears the session unconditionally. Logging out an absent or
// expired token is not an error.
func (s *Service) LogOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a cookie token to the logged-in user id.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, core.ErrNoSession
	}
	session, err := s.store.GetSession(ctx, token, s.now())
	if errors.Is(err, core.ErrNotFound) {
		return 0, core.ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}
	return session.UserID, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
