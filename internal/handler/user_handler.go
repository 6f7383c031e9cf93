package handler

import (
	"net/http"

	"github.com/Baaaki/ghibli-gate/internal/middleware"
	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListQuery holds the pagination parameters of GET /users.
type ListQuery struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

// CreateUser adds a user. The very first user becomes the admin superuser and
// needs no token; afterwards only superusers may create users.
// POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.UserCreate

	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers returns a page of users.
// GET /users?skip=0&limit=10
func (h *UserHandler) ListUsers(c *gin.Context) {
	var query ListQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, err)
		return
	}

	logger.Log.Info("Admin fetching users",
		zap.String("admin_id", c.GetString("user_id")),
		zap.Int("skip", query.Skip),
		zap.Int("limit", query.Limit),
	)

	users, err := h.userService.List(c.Request.Context(), query.Skip, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Me returns the caller.
// GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// GetUser returns one user by id.
// GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser applies a partial update.
// PUT /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	logger.Log.Info("Admin updating user",
		zap.String("admin_id", c.GetString("user_id")),
		zap.String("target_user_id", id.String()),
	)

	user, err := h.userService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user and returns the deleted record.
// DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	logger.Log.Info("Admin deleting user",
		zap.String("admin_id", c.GetString("user_id")),
		zap.String("target_user_id", id.String()),
	)

	user, err := h.userService.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// pathID parses :id. A malformed id is answered like an unknown one.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": msgUserNotFound})
		return uuid.Nil, false
	}
	return id, true
}
