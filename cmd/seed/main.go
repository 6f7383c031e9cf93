package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Baaaki/ghibli-gate/internal/config"
	"github.com/Baaaki/ghibli-gate/internal/database"
	"github.com/Baaaki/ghibli-gate/internal/repository"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	demo := flag.Bool("demo", false, "also create one demo user per role (password test123)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(!cfg.IsProduction(), cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Admin credentials default to admin/admin123
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if cfg.IsProduction() && adminPassword == "" {
		logger.Log.Fatal("ADMIN_PASSWORD must be set in production")
	}

	users := service.NewUserService(
		repository.NewUserRepository(db, cfg.Database.Timeout),
		utils.NewPasswordHasher(cfg.PasswordHashCost),
		service.Pagination{DefaultLimit: cfg.PaginationDefaultLimit, MaxLimit: cfg.PaginationMaxLimit},
	)

	result, err := users.Seed(context.Background(), service.SeedOptions{
		AdminUsername: adminUsername,
		AdminPassword: adminPassword,
		DemoUsers:     *demo,
	})
	if err != nil {
		logger.Log.Fatal("Seeding failed", zap.Error(err))
	}

	for _, name := range result.Created {
		log.Println("✅ Created user:", name)
	}
	for _, name := range result.Skipped {
		log.Println("   Already exists:", name)
	}
}
