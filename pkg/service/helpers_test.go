package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/testutil"
)

type memoryAudit struct {
	mu   sync.Mutex
	logs []*repository.AuditLog
}

func (m *memoryAudit) CreateAuditLog(_ context.Context, log *repository.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryAudit) GetAuditLogs(_ context.Context, entityID string, limit int64) ([]*repository.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.AuditLog
	for i := len(m.logs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if m.logs[i].EntityID == entityID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

func (m *memoryAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Action
	}
	return out
}

type memoryCache struct {
	mu       sync.Mutex
	products map[string]models.Product
}

func newMemoryCache() *memoryCache {
	return &memoryCache{products: map[string]models.Product{}}
}

func (c *memoryCache) CacheProduct(_ context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.Slug] = *p
	return nil
}

func (c *memoryCache) GetProductCache(_ context.Context, slug string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[slug]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return &p, nil
}

func (c *memoryCache) InvalidateProducts(_ context.Context, slugs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range slugs {
		delete(c.products, s)
	}
	return nil
}

func (c *memoryCache) has(slug string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.products[slug]
	return ok
}

type env struct {
	db       *gorm.DB
	cache    *memoryCache
	audit    *memoryAudit
	catalog  *CatalogService
	orders   *OrderService
	payments *PaymentService
	admin    *AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	cache := newMemoryCache()
	audit := &memoryAudit{}
	logger := zap.NewNop()
	return &env{
		db:       db,
		cache:    cache,
		audit:    audit,
		catalog:  NewCatalogService(db, cache, logger),
		orders:   NewOrderService(db, logger),
		payments: NewPaymentService(db, cache, audit, "http://shop.test/", logger),
		admin:    NewAdminService(db, cache, audit, logger),
	}
}

func (e *env) user(t *testing.T, telegramID int64) *models.User {
	t.Helper()
	u := &models.User{TelegramID: telegramID, Role: models.RoleUser}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

type productOpt func(*models.Product)

func withCurrency(c string) productOpt { return func(p *models.Product) { p.Currency = c } }
func withStock(n int) productOpt       { return func(p *models.Product) { p.StockQuantity = n } }
func inactive() productOpt             { return func(p *models.Product) { p.IsActive = false } }
func withBrand(b string) productOpt    { return func(p *models.Product) { p.Brand = &b } }
func withType(tp string) productOpt    { return func(p *models.Product) { p.Type = tp } }
func withCategory(c models.Category) productOpt {
	return func(p *models.Product) { p.Category = c }
}
func withForm(f models.Form) productOpt { return func(p *models.Product) { p.Form = f } }
func createdAt(ts time.Time) productOpt { return func(p *models.Product) { p.CreatedAt = ts } }

func (e *env) product(t *testing.T, name, price string, opts ...productOpt) *models.Product {
	t.Helper()
	p := &models.Product{
		Slug:          Slugify(name),
		DisplayName:   name,
		Category:      models.CategoryProtein,
		Type:          "WPC",
		Form:          models.FormPowder,
		Images:        []string{"https://example.com/" + Slugify(name) + ".png"},
		Price:         decimal.RequireFromString(price),
		Currency:      "USD",
		StockQuantity: 10,
		IsActive:      true,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *env) stockOf(t *testing.T, id string) int {
	t.Helper()
	var p models.Product
	require.NoError(t, e.db.First(&p, "id = ?", id).Error)
	return p.StockQuantity
}

func pickupOrder(currency string, lines ...OrderLine) PlaceOrderInput {
	return PlaceOrderInput{
		Items:          lines,
		CustomerName:   "Ann Smith",
		Phone:          "+15550001111",
		DeliveryMethod: models.DeliveryPickup,
		Currency:       currency,
	}
}
