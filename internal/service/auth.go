// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/imgpress/imgpress/internal/auth"
	"github.com/imgpress/imgpress/internal/cache"
	"github.com/imgpress/imgpress/internal/metrics"
	"github.com/imgpress/imgpress/internal/model"
	"github.com/imgpress/imgpress/internal/repository"
)

// Auth service errors.
var (
	ErrInvalidInput       = errors.New("invalid username or password input")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// UserStore is the credential persistence the auth service depends on.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// SessionStore is the token binding persistence the auth service depends on.
type SessionStore interface {
	PutSession(ctx context.Context, token, username string, ttl time.Duration) error
	ResolveSession(ctx context.Context, token string) (string, error)
}

// AuthService registers users, verifies credentials and manages session tokens.
type AuthService struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	metrics    metrics.Recorder

	// fallbackHash is verified against when the username does not exist, so an
	// unknown-user login costs the same as a wrong-password login.
	fallbackHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, sessions SessionStore, sessionTTL time.Duration, recorder metrics.Recorder) (*AuthService, error) {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	fallbackHash, err := auth.HashPassword(ulid.Make().String())
	if err != nil {
		return nil, fmt.Errorf("prepare fallback hash: %w", err)
	}

	return &AuthService{
		users:        users,
		sessions:     sessions,
		sessionTTL:   sessionTTL,
		metrics:      recorder,
		fallbackHash: fallbackHash,
	}, nil
}

// Register creates a new user with a salted password hash.
// Returns ErrInvalidInput for empty or overlong fields and ErrUsernameTaken
// when the username exists; the database unique constraint makes the latter
// hold under concurrent registration.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	if len(username) < model.MinUsernameLength || len(username) > model.MaxUsernameLength {
		return ErrInvalidInput
	}
	if password == "" {
		return ErrInvalidInput
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncUserRegistered()

	return nil
}

// Login verifies credentials and mints a session token bound to the username.
// Unknown user and wrong password both return ErrInvalidCredentials; the
// fallback verification keeps the two paths indistinguishable by timing.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		s.metrics.IncLoginFailure()
		return "", ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = auth.VerifyPassword(password, s.fallbackHash)
			s.metrics.IncLoginFailure()
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !match {
		s.metrics.IncLoginFailure()
		return "", ErrInvalidCredentials
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}

	if err := s.sessions.PutSession(ctx, token, user.Username, s.sessionTTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	s.metrics.IncLoginSuccess()

	return token, nil
}

// Validate resolves a bearer token to its username.
// Absent, malformed, expired and unknown tokens all return ErrUnauthorized.
func (s *AuthService) Validate(ctx context.Context, token string) (string, error) {
	if !auth.ValidTokenFormat(token) {
		return "", ErrUnauthorized
	}

	username, err := s.sessions.ResolveSession(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("resolve session: %w", err)
	}

	return username, nil
}
