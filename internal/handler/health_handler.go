package handler

import (
	"net/http"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/cache"
	"github.com/Baaaki/ghibli-gate/internal/database"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const readinessTimeout = 2 * time.Second

type HealthHandler struct {
	db          *gorm.DB
	cache       cache.Cache
	environment string
}

func NewHealthHandler(db *gorm.DB, c cache.Cache, environment string) *HealthHandler {
	if c == nil {
		c = cache.Disabled{}
	}
	return &HealthHandler{
		db:          db,
		cache:       c,
		environment: environment,
	}
}

// Health is the liveness probe.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"environment": h.environment,
	})
}

// Ready reports store and cache reachability. Only a down store makes the
// service unready.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	cacheStatus := "up"
	if !h.cache.Check(ctx) {
		cacheStatus = "down"
	}

	if err := database.Ping(ctx, h.db, readinessTimeout); err != nil {
		logger.Log.Error("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"database": "down",
			"cache":    cacheStatus,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
		"cache":    cacheStatus,
	})
}
