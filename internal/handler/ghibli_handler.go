package handler

import (
	"net/http"

	"github.com/Baaaki/ghibli-gate/internal/middleware"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GhibliHandler struct {
	ghibliService *service.GhibliService
}

func NewGhibliHandler(ghibliService *service.GhibliService) *GhibliHandler {
	return &GhibliHandler{
		ghibliService: ghibliService,
	}
}

// GetData returns the content the caller's role may read.
// GET /ghibli
func (h *GhibliHandler) GetData(c *gin.Context) {
	user := middleware.CurrentUser(c)

	logger.Log.Info("Fetching Ghibli data",
		zap.String("username", user.Username),
		zap.String("role", user.Role.String()),
	)

	data, err := h.ghibliService.FetchForRole(c.Request.Context(), user.Role)
	if err != nil {
		logger.Log.Error("Error fetching Ghibli data",
			zap.String("username", user.Username),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ClearCache drops every cached upstream payload.
// DELETE /ghibli/cache
func (h *GhibliHandler) ClearCache(c *gin.Context) {
	logger.Log.Info("Admin clearing proxy cache",
		zap.String("admin_id", c.GetString("user_id")),
	)

	if !h.ghibliService.ClearCache(c.Request.Context()) {
		logger.Log.Warn("Proxy cache clear incomplete, cache unavailable")
	}

	c.Status(http.StatusNoContent)
}
