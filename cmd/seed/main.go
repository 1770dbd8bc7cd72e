package main

import (
	"context"
	"log"
	"os"

	"github.com/noah-isme/ta-presence-api/internal/seed"
	"github.com/noah-isme/ta-presence-api/pkg/config"
	"github.com/noah-isme/ta-presence-api/pkg/database"
	"github.com/noah-isme/ta-presence-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	path := cfg.Seed.CSVPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	seeder := seed.New(db, logr)
	stats, err := seeder.Run(context.Background(), path)
	if err != nil {
		logr.Sugar().Fatalw("seed failed", "error", err, "path", path)
	}
	logr.Sugar().Infow("seed finished",
		"path", path, "teachers", stats.Teachers,
		"scans", stats.Scans, "leaves", stats.Leaves, "skipped", stats.Skipped)
}
