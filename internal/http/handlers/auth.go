package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthFlows is the slice of service.AuthService the handlers call.
type AuthFlows interface {
	Signup(ctx context.Context, in service.SignupInput) (user.User, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

type AuthHandler struct {
	svc     AuthFlows
	prom    *observability.Prom
	log     *slog.Logger
	timeout time.Duration
}

func NewAuthHandler(svc AuthFlows, prom *observability.Prom, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{svc: svc, prom: prom, log: log, timeout: 5 * time.Second}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.svc.Signup(cctx, service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.prom.ObserveAuth("signup", outcomeLabel(err))
		RespondServiceError(ctx, h.log, err)
		return
	}
	h.prom.ObserveAuth("signup", "ok")

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"data":    u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Login(cctx, req.Email, req.Password)
	if err != nil {
		h.prom.ObserveAuth("login", outcomeLabel(err))
		RespondServiceError(ctx, h.log, err)
		return
	}
	h.prom.ObserveAuth("login", "ok")

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User logged in successfully",
		"data":    res.User,
		"token":   res.Tokens,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req RefreshRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	tokens, err := h.svc.RefreshTokens(cctx, req.RefreshToken)
	if err != nil {
		h.prom.ObserveAuth("refresh", outcomeLabel(err))
		RespondServiceError(ctx, h.log, err)
		return
	}
	h.prom.ObserveAuth("refresh", "ok")

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Tokens refreshed successfully",
		"tokens":  tokens,
	})
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isDomainErr(err):
		return "rejected"
	default:
		return "error"
	}
}
