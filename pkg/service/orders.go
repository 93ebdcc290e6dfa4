package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
)

type OrderLine struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	Items          []OrderLine
	CustomerName   string
	Phone          string
	DeliveryMethod models.DeliveryMethod
	Address        *string
	Notes          *string
	Currency       string
}

func (in *PlaceOrderInput) validate() error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", ErrInvalidInput)
	}
	for _, line := range in.Items {
		if line.ProductID == "" || line.Quantity <= 0 {
			return fmt.Errorf("%w: every item needs a product id and a positive quantity", ErrInvalidInput)
		}
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}
	if !in.DeliveryMethod.Valid() {
		return fmt.Errorf("%w: unknown delivery method %q", ErrInvalidInput, in.DeliveryMethod)
	}
	if in.DeliveryMethod == models.DeliveryCourier && (in.Address == nil || strings.TrimSpace(*in.Address) == "") {
		return fmt.Errorf("%w: courier delivery requires an address", ErrInvalidInput)
	}
	if in.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}
	return nil
}

// OrderService places orders and lists a customer's own orders. Stock
// is only checked here; it is decremented at payment confirmation.
type OrderService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewOrderService(db *gorm.DB, logger *zap.Logger) *OrderService {
	return &OrderService{
		db:     db,
		logger: logger.Named("orders"),
	}
}

func (s *OrderService) Place(ctx context.Context, userID string, in PlaceOrderInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	products, err := s.resolveProducts(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		p := products[line.ProductID]
		if p.StockQuantity < line.Quantity {
			return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, p.DisplayName)
		}
		if p.Currency != in.Currency {
			return nil, fmt.Errorf("%w: %s", ErrCurrencyMismatch, p.DisplayName)
		}

		item := models.OrderItem{
			ProductID:        p.ID,
			NameSnapshot:     p.DisplayName,
			PriceSnapshot:    p.Price,
			CurrencySnapshot: p.Currency,
			Quantity:         line.Quantity,
		}
		subtotal = subtotal.Add(item.LineTotal())
		items = append(items, item)
	}

	order := &models.Order{
		UserID:         userID,
		Status:         models.OrderStatusCreated,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		Phone:          strings.TrimSpace(in.Phone),
		DeliveryMethod: in.DeliveryMethod,
		Notes:          in.Notes,
		Currency:       in.Currency,
		Subtotal:       subtotal,
		Items:          items,
	}
	if in.DeliveryMethod == models.DeliveryCourier {
		order.Address = in.Address
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		s.logger.Error("Failed to create order", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	metrics.OrdersPlaced.WithLabelValues(order.Currency).Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int("item_count", len(items)),
		zap.String("subtotal", order.Subtotal.StringFixed(2)),
		zap.String("currency", order.Currency))

	return order, nil
}

// ListMine returns the user's orders, newest first, with their items.
func (s *OrderService) ListMine(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// resolveProducts loads every referenced active product. A single
// missing or inactive id fails the whole order.
func (s *OrderService) resolveProducts(ctx context.Context, lines []OrderLine) (map[string]models.Product, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if len(products) != len(ids) {
		return nil, ErrProductsNotFound
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}
