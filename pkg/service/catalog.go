package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
)

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 50
	// MaxPage keeps the row offset far from integer overflow.
	MaxPage = 100000
)

// CatalogQuery filters the public catalog. Zero values mean "no filter".
type CatalogQuery struct {
	Page     int
	PageSize int
	Query    string
	Category string
	Form     string
	Brand    string
	InStock  bool
	Sort     SortKey
}

// Normalize clamps paging and falls back to newest-first ordering.
func (q *CatalogQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize < 1 {
		q.PageSize = 1
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Query = strings.TrimSpace(q.Query)
	q.Category = strings.TrimSpace(q.Category)
	q.Form = strings.TrimSpace(q.Form)
	q.Brand = strings.TrimSpace(q.Brand)
	switch q.Sort {
	case SortPriceAsc, SortPriceDesc:
	default:
		q.Sort = SortNewest
	}
}

type ProductPage struct {
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int64            `json:"total"`
	Items    []models.Product `json:"items"`
}

// CatalogService serves read-only access to active products.
type CatalogService struct {
	db     *gorm.DB
	cache  ProductCache
	logger *zap.Logger
}

func NewCatalogService(db *gorm.DB, cache ProductCache, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		db:     db,
		cache:  cacheOrNop(cache),
		logger: logger.Named("catalog"),
	}
}

func (s *CatalogService) List(ctx context.Context, q CatalogQuery) (*ProductPage, error) {
	q.Normalize()

	page := &ProductPage{
		Page:     q.Page,
		PageSize: q.PageSize,
		Items:    []models.Product{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.filtered(gctx, q).Count(&page.Total).Error
	})
	g.Go(func() error {
		return s.filtered(gctx, q).
			Order(orderClause(q.Sort)).
			Offset((q.Page - 1) * q.PageSize).
			Limit(q.PageSize).
			Find(&page.Items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return page, nil
}

// GetBySlug returns an active product or ErrNotFound.
func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	if cached, err := s.cache.GetProductCache(ctx, slug); err == nil && cached.IsActive {
		metrics.ProductCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.ProductCache.WithLabelValues("miss").Inc()

	var product models.Product
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := s.cache.CacheProduct(ctx, &product); err != nil {
		s.logger.Warn("Failed to cache product", zap.String("slug", slug), zap.Error(err))
	}
	return &product, nil
}

func (s *CatalogService) filtered(ctx context.Context, q CatalogQuery) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)

	if q.Query != "" {
		like := containsPattern(q.Query)
		tx = tx.Where("(LOWER(display_name) LIKE ? ESCAPE '!' OR LOWER(type) LIKE ? ESCAPE '!' OR LOWER(brand) LIKE ? ESCAPE '!')", like, like, like)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Form != "" {
		tx = tx.Where("form = ?", q.Form)
	}
	if q.Brand != "" {
		tx = tx.Where("LOWER(brand) LIKE ? ESCAPE '!'", containsPattern(q.Brand))
	}
	if q.InStock {
		tx = tx.Where("stock_quantity > ?", 0)
	}
	return tx
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern turns a search term into a case-insensitive substring
// LIKE pattern with '!' as the escape character.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func orderClause(sort SortKey) string {
	switch sort {
	case SortPriceAsc:
		return "price ASC, created_at DESC"
	case SortPriceDesc:
		return "price DESC, created_at DESC"
	default:
		return "created_at DESC, id ASC"
	}
}
