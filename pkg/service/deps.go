package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

const (
	serviceName  = "storefront-api"
	auditTimeout = 3 * time.Second
)

// ProductCache is the slug-keyed cache in front of public product reads.
type ProductCache interface {
	CacheProduct(ctx context.Context, product *models.Product) error
	GetProductCache(ctx context.Context, slug string) (*models.Product, error)
	InvalidateProducts(ctx context.Context, slugs ...string) error
}

// AuditLogger persists audit entries for mutations.
type AuditLogger interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

func cacheOrNop(cache ProductCache) ProductCache {
	if cache == nil {
		return repository.NopCache{}
	}
	return cache
}

func auditOrNop(audit AuditLogger) AuditLogger {
	if audit == nil {
		return repository.NopAudit{}
	}
	return audit
}

// recordAudit writes an entry without failing the caller; the request
// has already committed by the time it runs.
func recordAudit(ctx context.Context, audit AuditLogger, logger *zap.Logger, entry *repository.AuditLog) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	entry.Service = serviceName
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("Failed to write audit log",
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}
}

func invalidate(ctx context.Context, cache ProductCache, logger *zap.Logger, slugs ...string) {
	if err := cache.InvalidateProducts(ctx, slugs...); err != nil {
		logger.Warn("Failed to invalidate product cache", zap.Strings("slugs", slugs), zap.Error(err))
	}
}
