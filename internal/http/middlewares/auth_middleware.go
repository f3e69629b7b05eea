package middlewares

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware puts an auth.Authenticator in front of protected routes.
type AuthMiddleware struct {
	authn auth.Authenticator
	log   *slog.Logger
}

func NewAuthMiddleware(authn auth.Authenticator, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{authn: authn, log: log}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := m.authn.Authenticate(c.Request)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				abortJSON(c, http.StatusUnauthorized, "unauthenticated", "Missing, invalid or expired access token")
				return
			}

			m.log.ErrorContext(c.Request.Context(), "authenticate failed", "err", err)
			abortJSON(c, http.StatusInternalServerError, "internal_error", "Something went wrong")
			return
		}

		c.Set(ctxIdentity, id)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}

func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok && id.UserID != ""
}

func abortJSON(c *gin.Context, status int, code, message string) {
	body := gin.H{"code": code, "message": message}
	if rid, ok := c.Get(CtxRequestID); ok {
		body["requestId"] = rid
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
