package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type Invoice struct {
	InvoiceLink string `json:"invoiceLink"`
}

// PaymentService drives the Telegram payment stub: invoice creation
// and payment confirmation, which is the only place stock decreases.
type PaymentService struct {
	db      *gorm.DB
	cache   ProductCache
	audit   AuditLogger
	baseURL string
	logger  *zap.Logger
}

func NewPaymentService(db *gorm.DB, cache ProductCache, audit AuditLogger, publicBaseURL string, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		db:      db,
		cache:   cacheOrNop(cache),
		audit:   auditOrNop(audit),
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger.Named("payments"),
	}
}

// CreateInvoice marks the caller's order INVOICE_CREATED and returns a
// placeholder invoice link. Orders of other users are reported as
// ErrNotFound.
func (s *PaymentService) CreateInvoice(ctx context.Context, userID, orderID string) (*Invoice, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId required", ErrInvalidInput)
	}

	var order models.Order
	err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && order.UserID != userID) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !order.Status.Payable() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrderState, order.Status)
	}

	updates := map[string]interface{}{
		"status":           models.OrderStatusInvoiceCreated,
		"payment_provider": models.PaymentProviderTelegram,
		"payment_status":   models.PaymentStatusInvoiceCreated,
	}
	// The status may have moved on since it was read; never overwrite a
	// confirmed payment.
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", order.ID, models.PayableStatuses()).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports unchanged rows as unaffected, so a re-issued
		// invoice lands here too.
		var current models.Order
		if err := s.db.WithContext(ctx).Select("status").Where("id = ?", order.ID).First(&current).Error; err != nil {
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if !current.Status.Payable() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOrderState, current.Status)
		}
	}

	recordAudit(ctx, s.audit, s.logger, &repository.AuditLog{
		Action:   "create_invoice",
		EntityID: order.ID,
		ActorID:  userID,
		Data:     bson.M{"subtotal": order.Subtotal.String(), "currency": order.Currency},
	})

	return &Invoice{InvoiceLink: fmt.Sprintf("%s/pay/telegram/%s", s.baseURL, order.ID)}, nil
}

// ConfirmPayment decrements stock for every item, clamped at zero, and
// marks the order PAID. Both happen in one transaction with the order
// and product rows locked.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("%w: orderId required", ErrInvalidInput)
	}

	var touched []string
	decrements := bson.M{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !order.Status.Payable() {
			return fmt.Errorf("%w: %s", ErrInvalidOrderState, order.Status)
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return err
		}

		for _, item := range items {
			var product models.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", item.ProductID).
				First(&product).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Deleted since the order was placed.
				continue
			}
			if err != nil {
				return err
			}

			remaining := product.StockQuantity - item.Quantity
			if remaining < 0 {
				remaining = 0
			}
			err = tx.Model(&models.Product{}).
				Where("id = ?", product.ID).
				Update("stock_quantity", remaining).Error
			if err != nil {
				return err
			}
			touched = append(touched, product.Slug)
			decrements[product.ID] = bson.M{"before": product.StockQuantity, "after": remaining}
		}

		return tx.Model(&order).Updates(map[string]interface{}{
			"status":         models.OrderStatusPaid,
			"payment_status": models.PaymentStatusPaid,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidOrderState) {
			return err
		}
		s.logger.Error("Failed to confirm payment", zap.String("order_id", orderID), zap.Error(err))
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, touched...)
	metrics.PaymentsConfirmed.Inc()
	recordAudit(ctx, s.audit, s.logger, &repository.AuditLog{
		Action:   "confirm_payment",
		EntityID: orderID,
		Data:     bson.M{"stock": decrements},
	})
	s.logger.Info("Payment confirmed", zap.String("order_id", orderID), zap.Int("products", len(touched)))

	return nil
}
