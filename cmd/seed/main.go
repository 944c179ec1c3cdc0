package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"crmnice/internal/config"
	"crmnice/internal/database"
	"crmnice/internal/domain"
	"crmnice/internal/pkg/logger"
	"crmnice/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	username := flag.String("admin-username", os.Getenv("ADMIN_USERNAME"), "first super-admin username")
	password := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "first super-admin password")
	email := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "first super-admin email")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.LogLevel, "console"); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Info("seeding reference data")
	if err := database.SeedReferenceData(db); err != nil {
		return err
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	admins, err := users.CountByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("count super-admins: %w", err)
	}
	if admins > 0 {
		logger.Info("super-admin already exists, skipping", zap.Int64("count", admins))
		return nil
	}
	if *username == "" || len(*password) < 6 {
		return errors.New("no super-admin yet: pass -admin-username and -admin-password (at least 6 characters)")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &domain.User{Username: *username, Email: *email, PasswordHash: string(hash), IsActive: true}
	profile := &domain.UserProfile{Role: domain.RoleSuperAdmin, Language: "ru"}
	if err := users.CreateWithProfile(ctx, admin, profile); err != nil {
		return fmt.Errorf("create super-admin: %w", err)
	}

	logger.Info("super-admin created", zap.String("username", admin.Username), zap.Int64("id", admin.ID))
	return nil
}
