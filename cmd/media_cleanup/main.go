package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"crmnice/internal/config"
	"crmnice/internal/database"
	"crmnice/internal/pkg/logger"
	"crmnice/internal/pkg/storage"
	"crmnice/internal/repository"
)

var mediaDirs = []string{"companies/photos", "companies/logos"}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "media cleanup failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dryRun := flag.Bool("dry-run", false, "only report orphaned files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	refs, err := repository.NewCompanyRepository(db).AllMedia(context.Background())
	if err != nil {
		return fmt.Errorf("collect media references: %w", err)
	}

	files := storage.NewLocal(cfg.MediaDir, cfg.MediaURL)
	var scanned, removed int
	for _, dir := range mediaDirs {
		urls, err := files.List(dir)
		if err != nil {
			return fmt.Errorf("list %s: %w", dir, err)
		}
		for _, url := range urls {
			scanned++
			if _, ok := refs[url]; ok {
				continue
			}
			if *dryRun {
				logger.Info("orphaned file", zap.String("url", url))
				continue
			}
			if err := files.Delete(url); err != nil {
				logger.Warn("delete orphaned file failed", zap.String("url", url), zap.Error(err))
				continue
			}
			removed++
		}
	}

	logger.Info("media cleanup completed",
		zap.Int("scanned", scanned),
		zap.Int("removed", removed),
		zap.Int("referenced", len(refs)),
		zap.Bool("dry_run", *dryRun),
	)
	return nil
}
