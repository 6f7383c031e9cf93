package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CurrentUserKey is the gin context key holding the authenticated *models.User.
const CurrentUserKey = "current_user"

// Authorizer resolves a bearer token against a requirement.
type Authorizer interface {
	Authorize(ctx context.Context, token string, req service.Requirement) (*models.User, error)
}

type AuthMiddleware struct {
	auth Authorizer
}

func NewAuthMiddleware(auth Authorizer) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Require gates a route. On success the caller (possibly nil in optional mode)
// is stored under CurrentUserKey.
func (m *AuthMiddleware) Require(req service.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.auth.Authorize(c.Request.Context(), BearerToken(c), req)
		if err != nil {
			AbortWithAuthError(c, err)
			return
		}

		if user != nil {
			c.Set(CurrentUserKey, user)
			c.Set("user_id", user.ID.String())
		}
		c.Next()
	}
}

// RequireActive allows any authenticated, active user.
func (m *AuthMiddleware) RequireActive() gin.HandlerFunc {
	return m.Require(service.RequireActive)
}

// RequireSuperuser allows active superusers only.
func (m *AuthMiddleware) RequireSuperuser() gin.HandlerFunc {
	return m.Require(service.RequireSuperuser)
}

// OptionalUser attaches the caller when a usable token is present.
func (m *AuthMiddleware) OptionalUser() gin.HandlerFunc {
	return m.Require(service.OptionalActive)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// A missing header or another scheme yields "".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the user stored by the gate, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// AbortWithAuthError writes the response for a gate outcome.
func AbortWithAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
	case errors.Is(err, service.ErrInactiveUser):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Inactive user"})
	case errors.Is(err, service.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "The user doesn't have enough privileges"})
	default:
		logger.Log.Error("Authorization failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}
