package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DefaultSecretKey = "CHANGE_THIS_SECRET_KEY"
	EnvProduction    = "production"
)

var ErrInsecureSecret = errors.New("SECRET_KEY must be changed in production")

type Config struct {
	ServerPort  string `env:"SERVER_PORT, default=:8080"`
	Environment string `env:"ENVIRONMENT, default=development"`
	LogLevel    string `env:"LOG_LEVEL"`
	ProjectName string `env:"PROJECT_NAME, default=Ghibli API"`
	APIV1Str    string `env:"API_V1_STR, default=/api/v1"`

	// Tokens
	SecretKey                string `env:"SECRET_KEY, default=CHANGE_THIS_SECRET_KEY"`
	Algorithm                string `env:"ALGORITHM, default=HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES, default=30"`

	PaginationDefaultLimit int  `env:"PAGINATION_DEFAULT_LIMIT, default=10"`
	PaginationMaxLimit     int  `env:"PAGINATION_MAX_LIMIT, default=100"`
	CreateInitialData      bool `env:"CREATE_INITIAL_DATA, default=false"`
	PasswordHashCost       int  `env:"PASSWORD_HASH_COST, default=10"`

	CORSOrigins []string `env:"CORS_ORIGINS"`

	Database  DatabaseConfig
	Redis     RedisConfig
	Ghibli    GhibliConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Driver     string        `env:"DB_DRIVER, default=postgres"`
	URL        string        `env:"DATABASE_URL"`
	User       string        `env:"POSTGRES_USER, default=user"`
	Password   string        `env:"POSTGRES_PASSWORD, default=password"`
	Name       string        `env:"POSTGRES_DB, default=ghibli_api"`
	Host       string        `env:"POSTGRES_HOST, default=ghibli_db"`
	Port       int           `env:"POSTGRES_PORT, default=5432"`
	SQLitePath string        `env:"SQLITE_PATH, default=ghibli.db"`
	Timeout    time.Duration `env:"DB_TIMEOUT, default=5s"`
}

type RedisConfig struct {
	Host     string        `env:"REDIS_HOST, default=ghibli_redis"`
	Port     int           `env:"REDIS_PORT, default=6379"`
	DB       int           `env:"REDIS_DB, default=0"`
	Password string        `env:"REDIS_PASSWORD"`
	TTL      int           `env:"REDIS_TTL, default=3600"`
	Enabled  bool          `env:"CACHE_ENABLED, default=true"`
	Timeout  time.Duration `env:"CACHE_TIMEOUT, default=500ms"`
}

type GhibliConfig struct {
	BaseURL   string        `env:"GHIBLI_BASE_URL, default=https://ghibli.rest"`
	Timeout   time.Duration `env:"GHIBLI_TIMEOUT, default=10s"`
	PartialOK bool          `env:"GHIBLI_PARTIAL_OK, default=false"`
}

type RateLimitConfig struct {
	Enabled     bool          `env:"RATE_LIMIT_ENABLED, default=true"`
	MaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS, default=20"`
	Window      time.Duration `env:"RATE_LIMIT_WINDOW, default=1m"`
}

// Load reads a .env file when present and decodes the process environment.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	// (Docker containers use environment variables directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	return LoadFrom(context.Background(), envconfig.OsLookuper())
}

// LoadFrom decodes configuration from the given lookuper. Tests pass a map lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.IsProduction() && c.SecretKey == DefaultSecretKey {
		return ErrInsecureSecret
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("config: ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpireMinutes)
	}
	if c.PaginationDefaultLimit <= 0 || c.PaginationMaxLimit < c.PaginationDefaultLimit {
		return fmt.Errorf("config: invalid pagination limits %d/%d", c.PaginationDefaultLimit, c.PaginationMaxLimit)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch strings.ToUpper(c.Algorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: unsupported ALGORITHM %q", c.Algorithm)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTL) * time.Second
}

// PostgresDSN returns DATABASE_URL or a DSN assembled from the POSTGRES_* variables.
func (c *DatabaseConfig) PostgresDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
