package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/seed"
	"github.com/example/storefront/pkg/service"
)

func main() {
	configPath := pflag.String("config", "config/config.yaml", "path to the YAML config file")
	force := pflag.Bool("force", false, "insert sample products even if the catalog is not empty")
	pflag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := config.NewLogger(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	db, err := repository.NewDatabase(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	seeder := seed.NewSeeder(db,
		auth.NewSessionService(db, tokens, cfg.Telegram.BotToken, cfg.Admin.IDs(), logger),
		service.NewAdminService(db, nil, nil, logger),
		logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := seeder.Run(ctx, cfg.Admin.IDs(), *force)
	if err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}

	logger.Info("Seed completed", zap.Int("admins", res.Admins), zap.Int("products", res.Products))
}
