package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/authhub/internal/domain/user"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID string
	Email  string
}

type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Authenticator is what protected routes put in front of their handlers.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// Guard resolves the bearer token of a request to a live user. It never mutates anything.
type Guard struct {
	tokens TokenVerifier
	users  UserFinder
	log    *slog.Logger
}

func NewGuard(tokens TokenVerifier, users UserFinder, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{tokens: tokens, users: users, log: log}
}

// Authenticate fails with ErrUnauthenticated (wrapping the cause) when the header is
// missing, the token does not verify, or its subject no longer exists.
func (g *Guard) Authenticate(r *http.Request) (Identity, error) {
	raw, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		g.log.DebugContext(r.Context(), "token rejected", "reason", Reason(err))
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	u, err := g.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			g.log.DebugContext(r.Context(), "token subject gone", "user_id", claims.Subject)
			return Identity{}, fmt.Errorf("%w: subject no longer exists", ErrUnauthenticated)
		}
		// store outage is infrastructure, not an auth failure
		return Identity{}, fmt.Errorf("resolve token subject: %w", err)
	}

	return Identity{UserID: u.ID, Email: u.Email}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}
