package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/cache"
	"github.com/Baaaki/ghibli-gate/internal/config"
	"github.com/Baaaki/ghibli-gate/internal/database"
	"github.com/Baaaki/ghibli-gate/internal/ghibli"
	"github.com/Baaaki/ghibli-gate/internal/repository"
	"github.com/Baaaki/ghibli-gate/internal/router"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(!cfg.IsProduction(), cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	logger.Log.Info("Starting service",
		zap.String("project", cfg.ProjectName),
		zap.String("environment", cfg.Environment),
	)

	// Store
	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Cache
	var (
		redisClient *redis.Client
		proxyCache  cache.Cache = cache.Disabled{}
	)
	if cfg.Redis.Enabled {
		redisClient = cache.NewClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Timeout)
		proxyCache = cache.NewRedisCache(redisClient, cache.Options{
			TTL:           cfg.CacheTTL(),
			Timeout:       cfg.Redis.Timeout,
			ProbeInterval: cache.DefaultProbeInterval,
			Prefix:        service.CacheKeyPrefix,
		})
		if !proxyCache.IsAvailable(context.Background()) {
			logger.Log.Warn("Redis not reachable at startup, serving without cache",
				zap.String("addr", cfg.Redis.Addr()),
			)
		}
	} else {
		logger.Log.Info("Cache disabled by configuration")
	}
	defer func() {
		if err := proxyCache.Close(); err != nil {
			logger.Log.Warn("Failed to close cache", zap.Error(err))
		}
	}()

	// Services
	tokens, err := utils.NewTokenManager(cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenTTL())
	if err != nil {
		return err
	}
	hasher := utils.NewPasswordHasher(cfg.PasswordHashCost)
	userRepo := repository.NewUserRepository(db, cfg.Database.Timeout)

	authService := service.NewAuthService(userRepo, hasher, tokens)
	userService := service.NewUserService(userRepo, hasher, service.Pagination{
		DefaultLimit: cfg.PaginationDefaultLimit,
		MaxLimit:     cfg.PaginationMaxLimit,
	})
	ghibliService := service.NewGhibliService(
		proxyCache,
		ghibli.NewClient(cfg.Ghibli.BaseURL, cfg.Ghibli.Timeout),
		service.GhibliOptions{TTL: cfg.CacheTTL(), PartialOK: cfg.Ghibli.PartialOK},
	)

	if cfg.CreateInitialData {
		if cfg.IsProduction() {
			logger.Log.Warn("CREATE_INITIAL_DATA ignored in production")
		} else if _, err := userService.Seed(context.Background(), service.SeedOptions{DemoUsers: true}); err != nil {
			return err
		}
	}

	engine, err := router.New(router.Deps{
		Config:        cfg,
		DB:            db,
		Cache:         proxyCache,
		Redis:         redisClient,
		AuthService:   authService,
		UserService:   userService,
		GhibliService: ghibliService,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.String("addr", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	logger.Log.Info("Server exited")
	return nil
}
