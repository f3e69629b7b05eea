package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

const requestIDKey = "request_id"

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(requestIDKey)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthenticated(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthenticated", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondServiceError maps the service taxonomy onto status codes. Anything it
// does not recognise is an infrastructure failure: logged here, never echoed.
func RespondServiceError(ctx *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrEmailConflict):
		RespondError(ctx, http.StatusConflict, "email_conflict", "Email already exists", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Invalid email or password", nil)
	case errors.Is(err, service.ErrUnauthenticated):
		RespondUnauthenticated(ctx, "Invalid or expired token")
	case errors.Is(err, service.ErrUnauthorized):
		RespondError(ctx, http.StatusUnauthorized, "unauthorized", "Not authorized", nil)
	case errors.Is(err, service.ErrUserNotFound):
		RespondError(ctx, http.StatusNotFound, "user_not_found", "User not found", nil)
	default:
		log.ErrorContext(ctx.Request.Context(), "request failed",
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
			"err", err,
		)
		RespondInternal(ctx, "Something went wrong")
	}
}

func isDomainErr(err error) bool {
	return errors.Is(err, service.ErrEmailConflict) ||
		errors.Is(err, service.ErrInvalidCredentials) ||
		errors.Is(err, service.ErrUnauthenticated) ||
		errors.Is(err, service.ErrUnauthorized) ||
		errors.Is(err, service.ErrUserNotFound)
}
