package http

import (
	"log/slog"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Env         string
	ServiceName string
	Log         *slog.Logger
	Prom        *observability.Prom

	Auth          handlers.AuthFlows
	Users         handlers.UserLifecycle
	Authenticator auth.Authenticator

	// Checks back /readyz, keyed by dependency name.
	Checks      map[string]handlers.Check
	CORSOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.ServiceName == "" {
		d.ServiceName = "authhub-api"
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))

	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authHandler := handlers.NewAuthHandler(d.Auth, d.Prom, d.Log)
	userHandler := handlers.NewUserHandler(d.Users, d.Log)
	requireAuth := middlewares.NewAuthMiddleware(d.Authenticator, d.Log).RequireAuth()

	// unversioned paths stay for existing clients; /v1 is the documented surface
	for _, prefix := range []string{"", "/v1"} {
		authGroup := r.Group(prefix+"/auth", middlewares.RequireJSON(), middlewares.MaxBodyBytes(maxBodyBytes))
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)

		// bearer check first: an anonymous caller gets 401 whatever the body
		userGroup := r.Group(prefix+"/user", requireAuth, middlewares.RequireJSON(), middlewares.MaxBodyBytes(maxBodyBytes))
		userGroup.PATCH("", userHandler.Update)
		userGroup.DELETE("", userHandler.Delete)
	}

	return r
}
