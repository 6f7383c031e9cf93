package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/cache"
	"github.com/Baaaki/ghibli-gate/internal/config"
	"github.com/Baaaki/ghibli-gate/internal/handler"
	"github.com/Baaaki/ghibli-gate/internal/middleware"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  cache.Cache

	// Redis backs the login rate limiter. Nil disables rate limiting.
	Redis *redis.Client

	AuthService   *service.AuthService
	UserService   *service.UserService
	GhibliService *service.GhibliService
}

// New builds the gin engine with every route mounted.
func New(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config

	if err := handler.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		middleware.SecurityHeadersMiddleware(),
		middleware.HSTSMiddleware(cfg.IsProduction()),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	authHandler := handler.NewAuthHandler(deps.AuthService)
	userHandler := handler.NewUserHandler(deps.UserService)
	ghibliHandler := handler.NewGhibliHandler(deps.GhibliService)
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Cache, cfg.Environment)

	auth := middleware.NewAuthMiddleware(deps.AuthService)

	// Operational routes
	r.GET("/health", healthHandler.Health)
	r.GET("/health/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(cfg.APIV1Str)

	// Public routes
	login := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled && deps.Redis != nil {
		limiter := middleware.NewRateLimiter(deps.Redis, middleware.RateLimiterConfig{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
			KeyPrefix:   "ratelimit:login",
			Timeout:     cfg.Redis.Timeout,
		})
		login = append(login, limiter.Middleware())
	}
	login = append(login, authHandler.Login)
	api.POST("/login", login...)

	// First user needs no token; later ones need a superuser.
	api.POST("/users", auth.OptionalUser(), userHandler.CreateUser)

	// Active users
	active := api.Group("")
	active.Use(auth.RequireActive())
	{
		active.GET("/users/me", userHandler.Me)
		active.GET("/ghibli", ghibliHandler.GetData)
	}

	// Superusers
	admin := api.Group("")
	admin.Use(auth.RequireSuperuser())
	{
		admin.GET("/users", userHandler.ListUsers)
		admin.GET("/users/:id", userHandler.GetUser)
		admin.PUT("/users/:id", userHandler.UpdateUser)
		admin.DELETE("/users/:id", userHandler.DeleteUser)
		admin.DELETE("/ghibli/cache", ghibliHandler.ClearCache)
	}

	return r, nil
}

// corsConfig allows every origin when none are configured.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "WWW-Authenticate", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowed
	return cfg
}
