package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Time window (e.g., 1 minute)
	KeyPrefix   string        // Redis key namespace, e.g. "ratelimit:login"
	Timeout     time.Duration // Per-check Redis timeout
}

// RateLimiter provides IP-based rate limiting using Redis
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "ratelimit"
	}
	if config.Timeout <= 0 {
		config.Timeout = 500 * time.Millisecond
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, retryAfter, err := rl.CheckLimit(c.Request.Context(), clientIP)
		if err != nil {
			// Fail open: the limiter is an extra, Redis being down must not lock users out
			logger.Log.Warn("Rate limiter unavailable, allowing request",
				zap.String("ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("ip", clientIP),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail":      "Too many requests. Please try again later.",
				"retry_after": int(retryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

// CheckLimit counts a request from ip in a fixed window.
// Returns: (allowed bool, retryAfter duration, error)
func (rl *RateLimiter) CheckLimit(ctx context.Context, ip string) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, rl.config.Timeout)
	defer cancel()

	key := fmt.Sprintf("%s:%s", rl.config.KeyPrefix, ip)

	// INCR + EXPIRE gives a fixed-window counter. The TTL is checked on every
	// hit so a key whose EXPIRE failed cannot block an IP forever.
	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	ttl, err := rl.redis.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 || ttl < 0 {
		if err := rl.redis.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
		ttl = rl.config.Window
	}

	if count > int64(rl.config.MaxRequests) {
		if ttl <= 0 {
			ttl = rl.config.Window // Fallback to window size
		}
		return false, ttl, nil
	}

	return true, 0, nil
}

// Reset clears the counter for ip.
func (rl *RateLimiter) Reset(ctx context.Context, ip string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.config.KeyPrefix, ip)).Err()
}
