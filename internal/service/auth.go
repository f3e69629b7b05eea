package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/google/uuid"
)

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type LoginResult struct {
	User   user.User
	Tokens auth.TokenPair
}

// AuthService runs signup, login and refresh. Each flow is a single request with
// no persisted intermediate state.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log}
}

// Signup creates a user. Emails are normalized here as well as at login, so two
// records can never differ only by case.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (user.User, error) {
	email := user.NormalizeEmail(in.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return user.User{}, ErrEmailConflict
	case !errors.Is(err, user.ErrNotFound):
		return user.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()

	created, err := s.users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         in.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// lost the race against a concurrent signup; the store's unique index caught it
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, ErrEmailConflict
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.InfoContext(ctx, "user signed up", "user_id", created.ID)

	return created, nil
}

// Login returns the same ErrInvalidCredentials for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup email: %w", err)
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	tokens, err := s.tokens.IssuePair(u.ID, u.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue tokens: %w", err)
	}

	return LoginResult{User: u, Tokens: tokens}, nil
}

// RefreshTokens trades a valid token for a fresh pair. The presented token is not
// revoked and stays usable until it expires.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		s.log.DebugContext(ctx, "refresh token rejected", "reason", auth.Reason(err))
		return auth.TokenPair{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		// deleted since the token was issued
		if errors.Is(err, user.ErrNotFound) {
			return auth.TokenPair{}, fmt.Errorf("%w: user not found", ErrUnauthenticated)
		}
		return auth.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	tokens, err := s.tokens.IssuePair(u.ID, u.Email)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	return tokens, nil
}
