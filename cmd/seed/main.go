package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/application"
	"github.com/oksasatya/go-ddd-user-service/internal/domain"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

var demoUsers = []struct{ Email, Name string }{
	{"alice@example.com", "Alice Example"},
	{"bob@example.com", "Bob Example"},
	{"carol@example.com", "Carol Example"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	var repo repository.UserRepository
	if cfg.StorageDriver == config.StoragePostgres {
		pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{DSN: cfg.PostgresDSN()})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pool.Close()
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
		repo = pginfra.NewUserRepository(pool)
	} else {
		logger.Warn("STORAGE_DRIVER is memory; seeded users live only for this run")
		repo = memory.NewUserRepository()
	}

	svc := application.NewService(repo, nil, nil, logger)
	failed := 0
	for _, d := range demoUsers {
		u, err := svc.CreateUser(ctx, d.Email, d.Name)
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			fmt.Printf("exists: email=%s\n", d.Email)
		case err != nil:
			helpers.LogError(logger, "seed user failed", err, map[string]any{"email": d.Email})
			failed++
		default:
			fmt.Printf("seeded user: id=%s email=%s name=%s\n", u.ID, u.Email, u.Name)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
