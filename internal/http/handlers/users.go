package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserLifecycle interface {
	Update(ctx context.Context, userID string, patch user.Patch) (user.User, error)
	Remove(ctx context.Context, userID string) error
}

type UserHandler struct {
	svc     UserLifecycle
	log     *slog.Logger
	timeout time.Duration
}

func NewUserHandler(svc UserLifecycle, log *slog.Logger) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{svc: svc, log: log, timeout: 5 * time.Second}
}

// UpdateUserRequest fields are optional; an absent field is left unchanged.
type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=30"`
	Email *string `json:"email" binding:"omitempty,email"`
}

func (h *UserHandler) Update(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthenticated(ctx, "Missing identity")
		return
	}

	var req UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.svc.Update(cctx, id.UserID, user.Patch{Email: req.Email, Name: req.Name})
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"data":    u,
	})
}

// Delete only schedules the removal; the record is gone once the worker runs.
func (h *UserHandler) Delete(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthenticated(ctx, "Missing identity")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	if err := h.svc.Remove(cctx, id.UserID); err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Account deletion accepted",
		"status":  "accepted",
	})
}
