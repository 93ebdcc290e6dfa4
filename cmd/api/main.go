package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
)

func main() {
	configPath := pflag.String("config", "config/config.yaml", "path to the YAML config file")
	listInstances := pflag.Bool("list-instances", false, "print the API instances registered in etcd and exit")
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

	if *listInstances {
		if err := printInstances(cfg, logger); err != nil {
			logger.Fatal("Failed to list instances", zap.Error(err))
		}
		return
	}

	logger.Info("Starting storefront API",
		zap.Int("port", cfg.Server.Port),
		zap.String("host", cfg.Server.Host),
		zap.String("database", cfg.Database.Driver))

	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is not configured (JWT_SECRET)")
	}
	if cfg.Telegram.BotToken == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set; /auth/telegram will fail")
	}

	// Setup database
	db, err := repository.NewDatabase(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Setup product cache
	var cache service.ProductCache
	if cfg.Redis.Addr != "" {
		redisRepo := repository.NewRedisRepository(&cfg.Redis, cfg.Cache.TTL)
		defer redisRepo.Close()
		cache = redisRepo
	} else {
		logger.Info("Redis not configured, product cache disabled")
	}

	// Setup audit log
	var audit service.AuditLogger
	var auditRepo *repository.AuditRepository
	if cfg.MongoDB.URI != "" {
		auditRepo, err = repository.NewAuditRepository(&cfg.MongoDB)
		if err != nil {
			logger.Warn("Failed to connect to MongoDB, continuing without audit log", zap.Error(err))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := auditRepo.EnsureIndexes(ctx); err != nil {
				logger.Warn("Failed to create audit indexes", zap.Error(err))
			}
			cancel()
			audit = auditRepo
		}
	} else {
		logger.Info("MongoDB not configured, audit log disabled")
	}

	// Create services
	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	logger.Info("Session tokens configured", zap.Duration("ttl", tokens.TTL()))
	services := gateway.Services{
		Sessions: auth.NewSessionService(db, tokens, cfg.Telegram.BotToken, cfg.Admin.IDs(), logger),
		Tokens:   tokens,
		Catalog:  service.NewCatalogService(db, cache, logger),
		Orders:   service.NewOrderService(db, logger),
		Payments: service.NewPaymentService(db, cache, audit, cfg.Telegram.PublicBaseURL, logger),
		Admin:    service.NewAdminService(db, cache, audit, logger),
	}

	// Create gateway
	gw := gateway.NewGateway(cfg, logger, services)
	gw.AddReadinessCheck("database", pingDatabase(db))
	if r, ok := cache.(*repository.RedisRepository); ok {
		gw.AddReadinessCheck("redis", r.Ping)
	}
	if auditRepo != nil && audit != nil {
		gw.AddReadinessCheck("mongodb", auditRepo.Ping)
	}
	gw.SetupRoutes()
	if cfg.Payments.DevMarkPaid {
		logger.Warn("Development mark-paid endpoint is enabled")
	}

	// Setup service discovery
	regCtx, stopRegistration := context.WithCancel(context.Background())
	defer stopRegistration()
	var sd *discovery.ServiceDiscovery
	instance := &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port}
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(regCtx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			gw.AddReadinessCheck("etcd", sd.Ping)
		}
	}

	// Start gateway in goroutine
	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	logger.Info("Storefront API started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-gwErr:
		logger.Fatal("Gateway error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(ctx, instance); err != nil {
			logger.Warn("Failed to deregister service", zap.Error(err))
		}
		stopRegistration()
		sd.Close()
	}

	if err := gw.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	if auditRepo != nil {
		auditRepo.Close(ctx)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("Storefront API stopped")
}

func pingDatabase(db *gorm.DB) gateway.ReadinessCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func printInstances(cfg *config.Config, logger *zap.Logger) error {
	if len(cfg.Etcd.Endpoints) == 0 {
		return fmt.Errorf("etcd endpoints are not configured")
	}
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger)
	if err != nil {
		return err
	}
	defer sd.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	instances, err := sd.Discover(ctx, cfg.Server.Name)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		fmt.Println(inst.Addr())
	}
	return nil
}
