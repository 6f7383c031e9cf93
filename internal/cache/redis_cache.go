package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultTTL           = time.Hour
	DefaultTimeout       = 500 * time.Millisecond
	DefaultProbeInterval = 2 * time.Second
)

// Options configures a RedisCache.
type Options struct {
	// TTL applied when Set is called with ttl <= 0.
	TTL time.Duration
	// Timeout bounds every round-trip, including availability probes.
	Timeout time.Duration
	// ProbeInterval is the minimum gap between reconnect probes while down.
	// Zero probes on every call.
	ProbeInterval time.Duration
	// Prefix scopes Clear. An empty prefix flushes the whole database.
	Prefix string
}

// RedisCache implements Cache on top of go-redis.
type RedisCache struct {
	client *redis.Client
	opts   Options

	available atomic.Bool
	probeMu   sync.Mutex
	lastProbe time.Time
}

// NewClient builds a redis client with short timeouts and no retries, so a
// missing server costs at most one timeout per call.
func NewClient(addr, password string, db int, timeout time.Duration) *redis.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolTimeout:  timeout,
		MaxRetries:   -1,
	})
}

// NewRedisCache wraps client. It does not connect; the first call probes lazily.
func NewRedisCache(client *redis.Client, opts Options) *RedisCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ProbeInterval < 0 {
		opts.ProbeInterval = 0
	}
	return &RedisCache{client: client, opts: opts}
}

func (c *RedisCache) IsAvailable(ctx context.Context) bool {
	if c.available.Load() {
		return true
	}
	return c.probe(ctx)
}

func (c *RedisCache) probe(ctx context.Context) bool {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()

	// Another caller may have reconnected while we waited.
	if c.available.Load() {
		return true
	}
	if c.opts.ProbeInterval > 0 && !c.lastProbe.IsZero() && time.Since(c.lastProbe) < c.opts.ProbeInterval {
		return false
	}
	c.lastProbe = time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		logger.Log.Warn("Cache unavailable",
			zap.String("addr", c.client.Options().Addr),
			zap.Error(err),
		)
		return false
	}

	c.available.Store(true)
	logger.Log.Info("Cache connected", zap.String("addr", c.client.Options().Addr))
	return true
}

func (c *RedisCache) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.markDown(err)
		return false
	}
	c.available.Store(true)
	return true
}

func (c *RedisCache) Get(ctx context.Context, key string) Result {
	if !c.IsAvailable(ctx) {
		return Result{Status: Unavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Log.Debug("Cache miss", zap.String("key", key))
		return Result{Status: Miss}
	}
	if err != nil {
		if c.markDown(err) {
			return Result{Status: Unavailable}
		}
		logger.Log.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return Result{Status: Miss}
	}

	if !json.Valid(data) {
		logger.Log.Warn("Cache entry is not valid JSON, treating as miss", zap.String("key", key))
		return Result{Status: Miss}
	}

	logger.Log.Debug("Cache hit", zap.String("key", key))
	return Result{Status: Hit, Value: json.RawMessage(data)}
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !c.IsAvailable(ctx) {
		return false
	}

	data, err := json.Marshal(value)
	if err != nil {
		logger.Log.Error("Cache value serialization failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return c.write(ctx, key, data, ttl)
}

func (c *RedisCache) SetRaw(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) bool {
	if !json.Valid(data) {
		logger.Log.Error("Refusing to cache invalid JSON", zap.String("key", key))
		return false
	}
	return c.write(ctx, key, data, ttl)
}

func (c *RedisCache) write(ctx context.Context, key string, data []byte, ttl time.Duration) bool {
	if !c.IsAvailable(ctx) {
		return false
	}
	if ttl <= 0 {
		ttl = c.opts.TTL
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.markDown(err)
		logger.Log.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}

	logger.Log.Debug("Cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return true
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	if !c.IsAvailable(ctx) {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.markDown(err)
		logger.Log.Error("Cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return false
	}

	logger.Log.Debug("Cache deleted", zap.Strings("keys", keys))
	return true
}

func (c *RedisCache) Clear(ctx context.Context) bool {
	if !c.IsAvailable(ctx) {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if c.opts.Prefix == "" {
		if err := c.client.FlushDB(ctx).Err(); err != nil {
			c.markDown(err)
			logger.Log.Error("Cache flush failed", zap.Error(err))
			return false
		}
		logger.Log.Info("Cache cleared")
		return true
	}

	var removed int
	iter := c.client.Scan(ctx, 0, c.opts.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.markDown(err)
			logger.Log.Error("Cache clear failed", zap.String("key", iter.Val()), zap.Error(err))
			return false
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		c.markDown(err)
		logger.Log.Error("Cache scan failed", zap.String("prefix", c.opts.Prefix), zap.Error(err))
		return false
	}

	logger.Log.Info("Cache cleared", zap.String("prefix", c.opts.Prefix), zap.Int("keys", removed))
	return true
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// markDown flips availability off for connectivity failures and reports
// whether it did. Server replies (WRONGTYPE etc.) leave the connection usable.
func (c *RedisCache) markDown(err error) bool {
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return false
	}
	if c.available.CompareAndSwap(true, false) {
		logger.Log.Warn("Cache connection lost, will re-probe", zap.Error(err))
	}
	return true
}
