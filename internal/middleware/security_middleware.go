package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Block MIME sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// No framing of API responses
		c.Header("X-Frame-Options", "DENY")

		// Legacy browsers only
		c.Header("X-XSS-Protection", "1; mode=block")

		// JSON API: nothing should ever be loaded from a response
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none';")

		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Header("Permissions-Policy",
			"camera=(), microphone=(), geolocation=(), payment=()",
		)

		// Bearer-authenticated responses are per user
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}

// HSTSMiddleware enforces HTTPS (only for production)
func HSTSMiddleware(isProduction bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProduction {
			// max-age: 1 year
			c.Header("Strict-Transport-Security",
				"max-age=31536000; includeSubDomains; preload",
			)
		}
		c.Next()
	}
}
