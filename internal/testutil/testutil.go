package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/cache"
	"github.com/Baaaki/ghibli-gate/internal/database"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TestDatabase holds test database connection (in-memory SQLite)
type TestDatabase struct {
	DB  *gorm.DB
	DSN string
}

// TestRedis holds test Redis mock (miniredis) and a client pointed at it
type TestRedis struct {
	Server *miniredis.Miniredis
	Client *redis.Client
}

// SetupTestDatabase creates an in-memory SQLite database for integration tests.
// Each call gets its own named database, so parallel packages never share rows.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())

	db, err := database.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// A single connection keeps the shared in-memory database alive and
	// avoids SQLite table locks between pooled connections.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDatabase{
		DB:  db,
		DSN: dsn,
	}
}

// Teardown cleans up the test database (closes connection)
func (td *TestDatabase) Teardown(t *testing.T) {
	if err := database.Close(td.DB); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

// SetupTestRedis creates an in-memory Redis mock (miniredis)
// No Docker required! Fast and isolated.
func SetupTestRedis(t *testing.T) *TestRedis {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	return &TestRedis{
		Server: server,
		Client: cache.NewClient(server.Addr(), "", 0, 200*time.Millisecond),
	}
}

// NewCache returns a RedisCache over the mock with the proxy's key prefix.
func (tr *TestRedis) NewCache() *cache.RedisCache {
	return cache.NewRedisCache(tr.Client, cache.Options{
		TTL:     time.Hour,
		Timeout: 200 * time.Millisecond,
		Prefix:  "ghibli:",
	})
}

// Teardown cleans up the test Redis mock
func (tr *TestRedis) Teardown(t *testing.T) {
	_ = tr.Client.Close()
	tr.Server.Close()
}

// CleanDatabase deletes all records from tables (for test isolation)
func CleanDatabase(t *testing.T, db *gorm.DB) {
	// SQLite doesn't support TRUNCATE
	tables := []string{"bootstrap_markers", "users"}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("Warning: Failed to clean table %s: %v", table, err)
		}
	}
}
