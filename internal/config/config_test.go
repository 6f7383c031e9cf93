package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.LogLevel, "empty level keeps the per-mode default")
	assert.Equal(t, "/api/v1", cfg.APIV1Str)
	assert.Equal(t, "HS256", cfg.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 10, cfg.PaginationDefaultLimit)
	assert.Equal(t, 100, cfg.PaginationMaxLimit)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "ghibli_redis:6379", cfg.Redis.Addr())
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.Redis.Timeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "https://ghibli.rest", cfg.Ghibli.BaseURL)
	assert.False(t, cfg.Ghibli.PartialOK)
	assert.Equal(t, 20, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ACCESS_TOKEN_EXPIRE_MINUTES": "5",
		"DB_DRIVER":                   "sqlite",
		"SQLITE_PATH":                 "/tmp/test.db",
		"REDIS_TTL":                   "60",
		"GHIBLI_PARTIAL_OK":           "true",
		"CORS_ORIGINS":                "http://a.test,http://b.test",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.True(t, cfg.Ghibli.PartialOK)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadFrom_RejectsDefaultSecretInProduction(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENVIRONMENT": "production",
	}))
	assert.ErrorIs(t, err, ErrInsecureSecret)

	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENVIRONMENT": "production",
		"SECRET_KEY":  "a-real-secret",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero token ttl", map[string]string{"ACCESS_TOKEN_EXPIRE_MINUTES": "0"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"unknown algorithm", map[string]string{"ALGORITHM": "RS256"}},
		{"max below default", map[string]string{"PAGINATION_MAX_LIMIT": "5"}},
		{"not a number", map[string]string{"REDIS_PORT": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Name: "db", Host: "h", Port: 5433}
	assert.Equal(t, "host=h user=u password=p dbname=db port=5433 sslmode=disable", c.PostgresDSN())

	c.URL = "postgres://x"
	assert.Equal(t, "postgres://x", c.PostgresDSN())
}
