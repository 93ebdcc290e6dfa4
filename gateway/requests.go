package gateway

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
)

type loginRequest struct {
	InitData string `json:"initData"`
}

type productRequest struct {
	// ID is accepted and ignored so clients can send back what they read.
	ID          *string `json:"id" binding:"omitempty,uuid"`
	Slug        *string `json:"slug" binding:"omitempty,max=120"`
	DisplayName string  `json:"display_name" binding:"required,min=1,max=200"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`

	Category string  `json:"category" binding:"required,oneof=protein vitamins creatine pre-workout bars other"`
	Type     string  `json:"type" binding:"required,min=1,max=120"`
	Series   *string `json:"series"`
	Form     string  `json:"form" binding:"required,oneof=powder capsules bar"`
	Flavor   *string `json:"flavor"`

	NetWeightG               *int     `json:"net_weight_g" binding:"omitempty,gt=0"`
	ServingSizeG             *float64 `json:"serving_size_g" binding:"omitempty,gt=0"`
	MixWithMLWater           *int     `json:"mix_with_ml_water" binding:"omitempty,gt=0"`
	RecommendedDailyServings *float64 `json:"recommended_daily_servings" binding:"omitempty,gt=0"`
	ShelfLifeMonths          *int     `json:"shelf_life_months" binding:"omitempty,gt=0"`
	Storage                  *string  `json:"storage"`

	Brand   *string `json:"brand"`
	Line    *string `json:"line"`
	Subline *string `json:"subline"`

	Images        []string         `json:"images" binding:"required,min=1,dive,url"`
	Price         *decimal.Decimal `json:"price" binding:"required"`
	Currency      string           `json:"currency" binding:"required,min=3,max=8"`
	StockQuantity *int             `json:"stock_quantity" binding:"required,gte=0"`
	IsActive      *bool            `json:"is_active" binding:"required"`
}

func (r *productRequest) toInput() service.ProductInput {
	in := service.ProductInput{
		Slug:                     r.Slug,
		DisplayName:              r.DisplayName,
		Description:              r.Description,
		Notes:                    r.Notes,
		Category:                 models.Category(r.Category),
		Type:                     r.Type,
		Series:                   r.Series,
		Form:                     models.Form(r.Form),
		Flavor:                   r.Flavor,
		NetWeightG:               r.NetWeightG,
		ServingSizeG:             r.ServingSizeG,
		MixWithMLWater:           r.MixWithMLWater,
		RecommendedDailyServings: r.RecommendedDailyServings,
		ShelfLifeMonths:          r.ShelfLifeMonths,
		Storage:                  r.Storage,
		Brand:                    r.Brand,
		Line:                     r.Line,
		Subline:                  r.Subline,
		Images:                   r.Images,
		Currency:                 r.Currency,
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.StockQuantity != nil {
		in.StockQuantity = *r.StockQuantity
	}
	if r.IsActive != nil {
		in.IsActive = *r.IsActive
	}
	return in
}

type orderItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type createOrderRequest struct {
	Items          []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerName   string             `json:"customer_name" binding:"required,min=1,max=120"`
	Phone          string             `json:"phone" binding:"required,min=6,max=32"`
	DeliveryMethod string             `json:"delivery_method" binding:"required,oneof=pickup courier"`
	Address        *string            `json:"address"`
	Notes          *string            `json:"notes"`
	Currency       string             `json:"currency" binding:"required,min=3,max=8"`
}

func (r *createOrderRequest) toInput() service.PlaceOrderInput {
	lines := make([]service.OrderLine, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, service.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	in := service.PlaceOrderInput{
		Items:          lines,
		CustomerName:   r.CustomerName,
		Phone:          r.Phone,
		DeliveryMethod: models.DeliveryMethod(r.DeliveryMethod),
		Address:        r.Address,
		Notes:          r.Notes,
		Currency:       r.Currency,
	}
	if in.Notes != nil && strings.TrimSpace(*in.Notes) == "" {
		in.Notes = nil
	}
	return in
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type paymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}
