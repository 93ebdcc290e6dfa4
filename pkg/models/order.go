package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "CREATED"
	OrderStatusInvoiceCreated OrderStatus = "INVOICE_CREATED"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{
	OrderStatusCreated, OrderStatusInvoiceCreated, OrderStatusPaid,
	OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Payable reports whether a payment confirmation may still be applied.
func (s OrderStatus) Payable() bool {
	return s == OrderStatusCreated || s == OrderStatusInvoiceCreated
}

func PayableStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusCreated, OrderStatusInvoiceCreated}
}

type DeliveryMethod string

const (
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryCourier DeliveryMethod = "courier"
)

func (d DeliveryMethod) Valid() bool {
	return d == DeliveryPickup || d == DeliveryCourier
}

const (
	PaymentProviderTelegram = "telegram"

	PaymentStatusInvoiceCreated = "invoice_created"
	PaymentStatusPaid           = "paid"
)

type Order struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string          `gorm:"type:varchar(36);not null;index" json:"userId"`
	User            *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CustomerName    string          `gorm:"type:varchar(120);not null" json:"customerName"`
	Phone           string          `gorm:"type:varchar(32);not null" json:"phone"`
	DeliveryMethod  DeliveryMethod  `gorm:"type:varchar(10);not null" json:"deliveryMethod"`
	Address         *string         `gorm:"type:text" json:"address"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	Currency        string          `gorm:"type:varchar(8);not null" json:"currency"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	PaymentProvider *string         `gorm:"type:varchar(32)" json:"paymentProvider"`
	PaymentStatus   *string         `gorm:"type:varchar(32)" json:"paymentStatus"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem is a snapshot of a product line taken when the order was
// placed. Later product edits never touch it.
type OrderItem struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID          string          `gorm:"type:varchar(36);not null;index" json:"orderId"`
	ProductID        string          `gorm:"type:varchar(36);not null;index" json:"productId"`
	NameSnapshot     string          `gorm:"type:varchar(200);not null" json:"nameSnapshot"`
	PriceSnapshot    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"priceSnapshot"`
	CurrencySnapshot string          `gorm:"type:varchar(8);not null" json:"currencySnapshot"`
	Quantity         int             `gorm:"not null" json:"quantity"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// LineTotal is the snapshot price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{&User{}, &Product{}, &Order{}, &OrderItem{}}
}
