package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/pkg/models"
)

func validProductInput(name string) ProductInput {
	return ProductInput{
		DisplayName:   name,
		Category:      models.CategoryProtein,
		Type:          "WPC",
		Form:          models.FormPowder,
		Images:        []string{"https://cdn.example.com/whey.png"},
		Price:         decimal.RequireFromString("29.99"),
		Currency:      "USD",
		StockQuantity: 10,
		IsActive:      true,
	}
}

func strPtr(s string) *string { return &s }

func TestCreateProductGeneratesSlug(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.admin.CreateProduct(ctx, "admin-1", validProductInput("Whey Isolate"))
	require.NoError(t, err)
	assert.Regexp(t, `^whey-isolate-[0-9a-f]{4}$`, p.Slug)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, []string{"create_product"}, e.audit.actions())
	assert.Equal(t, "admin-1", e.audit.logs[0].ActorID)
	assert.Equal(t, serviceName, e.audit.logs[0].Service)

	got, err := e.catalog.GetBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestCreateProductSlugRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	in := validProductInput("Whey Isolate")
	in.Slug = strPtr("whey-isolate")
	_, err := e.admin.CreateProduct(ctx, "admin", in)
	require.NoError(t, err)

	_, err = e.admin.CreateProduct(ctx, "admin", in)
	assert.ErrorIs(t, err, ErrSlugTaken)

	in.Slug = strPtr("Not A Slug")
	_, err = e.admin.CreateProduct(ctx, "admin", in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProductInputValidate(t *testing.T) {
	cases := map[string]func(*ProductInput){
		"empty name":     func(in *ProductInput) { in.DisplayName = "  " },
		"bad category":   func(in *ProductInput) { in.Category = "snacks" },
		"bad form":       func(in *ProductInput) { in.Form = "liquid" },
		"no type":        func(in *ProductInput) { in.Type = "" },
		"no images":      func(in *ProductInput) { in.Images = nil },
		"relative image": func(in *ProductInput) { in.Images = []string{"/img/whey.png"} },
		"zero price":     func(in *ProductInput) { in.Price = decimal.Zero },
		"short currency": func(in *ProductInput) { in.Currency = "US" },
		"negative stock": func(in *ProductInput) { in.StockQuantity = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validProductInput("Whey")
			mutate(&in)
			assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
		})
	}

	in := validProductInput("Whey")
	assert.NoError(t, in.Validate())
}

func TestUpdateProduct(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, "Whey Chocolate", "29.99")
	taken := e.product(t, "Creatine Mono", "15.00")

	_, err := e.catalog.GetBySlug(ctx, p.Slug)
	require.NoError(t, err)
	require.True(t, e.cache.has(p.Slug))

	in := validProductInput("Whey Chocolate 2kg")
	in.Slug = strPtr("whey-chocolate-2kg")
	in.Price = decimal.RequireFromString("49.50")
	in.IsActive = false
	updated, err := e.admin.UpdateProduct(ctx, "admin", p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "whey-chocolate-2kg", updated.Slug)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("49.5")))
	assert.False(t, e.cache.has(p.Slug))

	// Deactivated products leave the public catalog.
	_, err = e.catalog.GetBySlug(ctx, "whey-chocolate-2kg")
	assert.ErrorIs(t, err, ErrNotFound)

	in.Slug = strPtr(taken.Slug)
	_, err = e.admin.UpdateProduct(ctx, "admin", p.ID, in)
	assert.ErrorIs(t, err, ErrSlugTaken)

	_, err = e.admin.UpdateProduct(ctx, "admin", "missing", validProductInput("X"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteProducts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, "Whey Chocolate", "29.99")
	e.product(t, "Hidden Bar", "3.00", inactive())

	all, err := e.admin.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, e.admin.DeleteProduct(ctx, "admin", p.ID))
	assert.ErrorIs(t, e.admin.DeleteProduct(ctx, "admin", p.ID), ErrNotFound)

	all, err = e.admin.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, []string{"delete_product"}, e.audit.actions())
}

func TestAdminOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, 1)
	p := e.product(t, "Whey Chocolate", "29.99")

	order, err := e.orders.Place(ctx, u.ID, pickupOrder("USD", OrderLine{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	orders, err := e.admin.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].User)
	assert.Equal(t, int64(1), orders[0].User.TelegramID)
	assert.Len(t, orders[0].Items, 1)

	updated, err := e.admin.UpdateOrderStatus(ctx, "admin", order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	_, err = e.admin.UpdateOrderStatus(ctx, "admin", order.ID, "LOST")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.admin.UpdateOrderStatus(ctx, "admin", "missing", models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)

	trail, err := e.admin.AuditTrail(ctx, order.ID, 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "update_order_status", trail[0].Action)
	assert.Equal(t, "CREATED", trail[0].Data["from"])
	assert.Equal(t, "SHIPPED", trail[0].Data["to"])
}
