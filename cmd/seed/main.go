package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/container"
	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	pginfra "github.com/oksasatya/go-auth-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

// seed creates the ADMIN account named by SEED_ADMIN_*; an existing account with
// that email is promoted to ADMIN instead.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	if cfg.StoreDriver != config.StorePostgres {
		logger.Fatal("seeding requires STORE_DRIVER=postgres")
	}
	if cfg.SeedAdminEmail == "" || len(cfg.SeedAdminPassword) < 8 {
		logger.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD (min 8 chars) are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build container")
	}
	defer c.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	email := entity.NormalizeEmail(cfg.SeedAdminEmail)
	existing, err := c.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			logger.WithField("user_id", existing.ID).Info("admin already present")
			return
		}
		existing.Role = entity.RoleAdmin
		if err := c.Users.Update(ctx, existing); err != nil {
			logger.WithError(err).Fatal("failed to promote user")
		}
		logger.WithField("user_id", existing.ID).Info("promoted existing user to admin")
		return
	case !errors.Is(err, repository.ErrNotFound):
		logger.WithError(err).Fatal("failed to look up admin")
	}

	hash, err := c.Hasher.Hash(cfg.SeedAdminPassword)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}
	admin := &entity.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     entity.NormalizeUsername(cfg.SeedAdminUsername),
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
	}
	if err := c.Users.Create(ctx, admin); err != nil {
		logger.WithError(err).Fatal("failed to seed admin")
	}
	logger.WithFields(logrus.Fields{"user_id": admin.ID, "email": admin.Email}).Info("seeded admin")
}
