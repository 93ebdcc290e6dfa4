package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

// ProductInput is the full editable product schema.
type ProductInput struct {
	Slug        *string
	DisplayName string
	Description *string
	Notes       *string

	Category models.Category
	Type     string
	Series   *string
	Form     models.Form
	Flavor   *string

	NetWeightG               *int
	ServingSizeG             *float64
	MixWithMLWater           *int
	RecommendedDailyServings *float64
	ShelfLifeMonths          *int
	Storage                  *string

	Brand   *string
	Line    *string
	Subline *string

	Images        []string
	Price         decimal.Decimal
	Currency      string
	StockQuantity int
	IsActive      bool
}

func (in *ProductInput) Validate() error {
	var problems []string
	if name := strings.TrimSpace(in.DisplayName); name == "" || len(name) > 200 {
		problems = append(problems, "display_name must be 1-200 characters")
	}
	if in.Slug != nil && *in.Slug != "" && !ValidSlug(strings.TrimSpace(*in.Slug)) {
		problems = append(problems, "slug must be lowercase letters, digits and single hyphens")
	}
	if !in.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", in.Category))
	}
	if !in.Form.Valid() {
		problems = append(problems, fmt.Sprintf("unknown form %q", in.Form))
	}
	if strings.TrimSpace(in.Type) == "" {
		problems = append(problems, "type is required")
	}
	if len(in.Images) == 0 {
		problems = append(problems, "at least one image is required")
	}
	for _, img := range in.Images {
		if u, err := url.ParseRequestURI(img); err != nil || u.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid image url %q", img))
		}
	}
	if !in.Price.IsPositive() {
		problems = append(problems, "price must be positive")
	}
	if n := len(in.Currency); n < 3 || n > 8 {
		problems = append(problems, "currency must be 3-8 characters")
	}
	if in.StockQuantity < 0 {
		problems = append(problems, "stock_quantity must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func (in *ProductInput) apply(p *models.Product) {
	p.DisplayName = strings.TrimSpace(in.DisplayName)
	p.Description = in.Description
	p.Notes = in.Notes
	p.Category = in.Category
	p.Type = in.Type
	p.Series = in.Series
	p.Form = in.Form
	p.Flavor = in.Flavor
	p.NetWeightG = in.NetWeightG
	p.ServingSizeG = in.ServingSizeG
	p.MixWithMLWater = in.MixWithMLWater
	p.RecommendedDailyServings = in.RecommendedDailyServings
	p.ShelfLifeMonths = in.ShelfLifeMonths
	p.Storage = in.Storage
	p.Brand = in.Brand
	p.Line = in.Line
	p.Subline = in.Subline
	p.Images = in.Images
	p.Price = in.Price
	p.Currency = in.Currency
	p.StockQuantity = in.StockQuantity
	p.IsActive = in.IsActive
}

func (in *ProductInput) suppliedSlug() string {
	if in.Slug == nil {
		return ""
	}
	return strings.TrimSpace(*in.Slug)
}

// AdminService implements product and order management for ADMIN
// callers. Authorization happens in the HTTP layer.
type AdminService struct {
	db     *gorm.DB
	cache  ProductCache
	audit  AuditLogger
	logger *zap.Logger
}

func NewAdminService(db *gorm.DB, cache ProductCache, audit AuditLogger, logger *zap.Logger) *AdminService {
	return &AdminService{
		db:     db,
		cache:  cacheOrNop(cache),
		audit:  auditOrNop(audit),
		logger: logger.Named("admin"),
	}
}

func (s *AdminService) CreateProduct(ctx context.Context, actorID string, in ProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	slug := in.suppliedSlug()
	if slug == "" {
		slug = GenerateSlug(in.DisplayName)
	}
	if err := s.ensureSlugFree(ctx, slug, ""); err != nil {
		return nil, err
	}

	product := &models.Product{Slug: slug}
	in.apply(product)

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	recordAudit(ctx, s.audit, s.logger, &repository.AuditLog{
		Action:   "create_product",
		EntityID: product.ID,
		ActorID:  actorID,
		Data:     bson.M{"slug": product.Slug, "price": product.Price.String(), "stock": product.StockQuantity},
	})
	return product, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, actorID, id string, in ProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := product.Slug

	if slug := in.suppliedSlug(); slug != "" && slug != oldSlug {
		if err := s.ensureSlugFree(ctx, slug, product.ID); err != nil {
			return nil, err
		}
		product.Slug = slug
	}
	in.apply(product)

	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, oldSlug, product.Slug)
	recordAudit(ctx, s.audit, s.logger, &repository.AuditLog{
		Action:   "update_product",
		EntityID: product.ID,
		ActorID:  actorID,
		Data:     bson.M{"slug": product.Slug, "price": product.Price.String(), "stock": product.StockQuantity, "active": product.IsActive},
	})
	return product, nil
}

// ListProducts returns every product, inactive ones included.
func (s *AdminService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, actorID, id string) error {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, product.Slug)
	recordAudit(ctx, s.audit, s.logger, &repository.AuditLog{
		Action:   "delete_product",
		EntityID: id,
		ActorID:  actorID,
		Data:     bson.M{"slug": product.Slug},
	})
	return nil
}

// ListOrders returns every order with its items and owner.
func (s *AdminService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus sets any known status. Transitions are not
// enforced here; only payment confirmation is constrained.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, actorID, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, status)
	}

	var order models.Order
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	previous := order.Status
	if err := s.db.WithContext(ctx).Model(&order).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	order.Status = status

	recordAudit(ctx, s.audit, s.logger, &repository.AuditLog{
		Action:   "update_order_status",
		EntityID: order.ID,
		ActorID:  actorID,
		Data:     bson.M{"from": string(previous), "to": string(status)},
	})
	return &order, nil
}

// AuditTrail returns the latest audit entries for an entity.
func (s *AdminService) AuditTrail(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.audit.GetAuditLogs(ctx, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	if logs == nil {
		logs = []*repository.AuditLog{}
	}
	return logs, nil
}

func (s *AdminService) findProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (s *AdminService) ensureSlugFree(ctx context.Context, slug, exceptID string) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrSlugTaken, slug)
	}
	return nil
}
