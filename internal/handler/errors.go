package handler

import (
	"errors"
	"net/http"

	"github.com/Baaaki/ghibli-gate/internal/middleware"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Client-facing messages. The wording is part of the API contract.
const (
	msgIncorrectLogin    = "Incorrect username or password"
	msgInvalidBody       = "Invalid request body"
	msgRoleNotAuthorized = "Role not authorized to access Ghibli API"
	msgSuperuserRequired = "Only superusers can create new users"
	msgUsernameTaken     = "A user with this username already exists."
	msgUserNotFound      = "User not found"
	msgUpstreamFailure   = "Error fetching Ghibli data"
	msgInternalError     = "Internal server error"
	msgPasswordTooLong   = "Password must be at most 72 bytes"
)

// respondError maps a service error to its HTTP response.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated),
		errors.Is(err, service.ErrInactiveUser),
		errors.Is(err, service.ErrForbidden):
		middleware.AbortWithAuthError(c, err)
	case errors.Is(err, service.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": msgIncorrectLogin})
	case errors.Is(err, service.ErrRoleNotAuthorized):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": msgRoleNotAuthorized})
	case errors.Is(err, service.ErrSuperuserRequired):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": msgSuperuserRequired})
	case errors.Is(err, service.ErrUsernameTaken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": msgUsernameTaken})
	case errors.Is(err, utils.ErrPasswordTooLong):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": msgPasswordTooLong})
	case errors.Is(err, service.ErrUserNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": msgUserNotFound})
	case errors.Is(err, service.ErrUpstream):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": msgUpstreamFailure})
	default:
		logger.Log.Error("Unhandled error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": msgInternalError})
	}
}

func respondBadRequest(c *gin.Context, err error) {
	logger.Log.Warn("Request parsing failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": msgInvalidBody})
}
