package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthorizer returns a fixed outcome and records what it was asked.
type fakeAuthorizer struct {
	user     *models.User
	err      error
	gotToken string
	gotReq   service.Requirement
}

func (f *fakeAuthorizer) Authorize(_ context.Context, token string, req service.Requirement) (*models.User, error) {
	f.gotToken = token
	f.gotReq = req
	return f.user, f.err
}

func newGatedRouter(gate gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", gate, func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user.Username})
	})
	return router
}

func doGet(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	d, _ := body["detail"].(string)
	return d
}

func TestAuthMiddleware_AttachesUser(t *testing.T) {
	// Arrange
	fake := &fakeAuthorizer{user: &models.User{ID: uuid.New(), Username: "films"}}
	router := newGatedRouter(NewAuthMiddleware(fake).RequireActive())

	// Act
	w := doGet(router, "Bearer abc.def.ghi")

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"films"}`, w.Body.String())
	assert.Equal(t, "abc.def.ghi", fake.gotToken)
	assert.Equal(t, service.RequireActive, fake.gotReq)
}

func TestAuthMiddleware_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"unauthenticated", service.ErrNotAuthenticated, http.StatusUnauthorized, "Could not validate credentials"},
		{"inactive", service.ErrInactiveUser, http.StatusBadRequest, "Inactive user"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "The user doesn't have enough privileges"},
		{"store failure", errors.New("db down"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthorizer{err: tt.err}
			router := newGatedRouter(NewAuthMiddleware(fake).RequireSuperuser())

			w := doGet(router, "Bearer token")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantDetail, detail(t, w))
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			} else {
				assert.Empty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthMiddleware_OptionalWithoutIdentity(t *testing.T) {
	fake := &fakeAuthorizer{}
	router := newGatedRouter(NewAuthMiddleware(fake).OptionalUser())

	w := doGet(router, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
	assert.Equal(t, service.OptionalActive, fake.gotReq)
	assert.Empty(t, fake.gotToken)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"abc", ""},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			assert.Equal(t, tt.want, BearerToken(c))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), HSTSMiddleware(true))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestHSTS_OffOutsideProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HSTSMiddleware(false))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
