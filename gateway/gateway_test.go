package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
	"github.com/example/storefront/pkg/telegram"
	"github.com/example/storefront/pkg/testutil"
)

const (
	testBotToken = "123456:TEST-bot-token"
	adminTGID    = 900
)

type testServer struct {
	gw *Gateway
	db *gorm.DB
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Telegram: config.TelegramConfig{BotToken: testBotToken, PublicBaseURL: "http://shop.test"},
		JWT:      config.JWTConfig{Secret: "jwt-secret", ExpiresIn: "1h"},
		CORS:     config.CORSConfig{Origin: "http://localhost:3000"},
		Payments: config.PaymentsConfig{DevMarkPaid: true},
	}
}

func setupServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewDB(t)
	logger := zap.NewNop()
	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	gw := NewGateway(cfg, logger, Services{
		Sessions: auth.NewSessionService(db, tokens, cfg.Telegram.BotToken, []int64{adminTGID}, logger),
		Tokens:   tokens,
		Catalog:  service.NewCatalogService(db, nil, logger),
		Orders:   service.NewOrderService(db, logger),
		Payments: service.NewPaymentService(db, nil, nil, cfg.Telegram.PublicBaseURL, logger),
		Admin:    service.NewAdminService(db, nil, nil, logger),
	})
	gw.SetupRoutes()
	return &testServer{gw: gw, db: db}
}

func doJSON(t *testing.T, s *testServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.gw.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func launchData(tgID int64) string {
	return telegram.SignInitData(map[string]string{
		"auth_date": "1717000000",
		"user":      `{"id":` + strconv.FormatInt(tgID, 10) + `,"first_name":"Ann","username":"ann"}`,
	}, testBotToken)
}

func login(t *testing.T, s *testServer, tgID int64) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/auth/telegram", "", map[string]any{"initData": launchData(tgID)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, w, &session)
	require.NotEmpty(t, session.Token)
	return session.Token
}

func productBody(name string, price float64, stock int) map[string]any {
	return map[string]any{
		"display_name":   name,
		"category":       "protein",
		"type":           "WPC",
		"form":           "powder",
		"images":         []string{"https://cdn.example.com/whey.png"},
		"price":          price,
		"currency":       "USD",
		"stock_quantity": stock,
		"is_active":      true,
	}
}

func createProduct(t *testing.T, s *testServer, adminToken string, body map[string]any) models.Product {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/admin/products", adminToken, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p models.Product
	decode(t, w, &p)
	return p
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = doJSON(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.gw.AddReadinessCheck("database", func(context.Context) error { return assert.AnError })
	w = doJSON(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database"`)

	w = doJSON(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAuthTelegram(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, http.MethodPost, "/auth/telegram", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/auth/telegram", "", map[string]any{"initData": "user=%7B%22id%22%3A1%7D&hash=deadbeef"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/auth/telegram", "", map[string]any{"initData": launchData(42)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}
	decode(t, w, &session)
	var user map[string]any
	require.NoError(t, json.Unmarshal(session.User, &user))
	assert.Equal(t, "42", user["telegramId"])
	assert.Equal(t, "USER", user["role"])
	assert.Equal(t, "ann", user["username"])
}

func TestAuthTelegramWithoutBotToken(t *testing.T) {
	s := setupServer(t, func(c *config.Config) { c.Telegram.BotToken = "" })

	w := doJSON(t, s, http.MethodPost, "/auth/telegram", "", map[string]any{"initData": launchData(42)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "TELEGRAM_BOT_TOKEN")
}

func TestAccessControl(t *testing.T) {
	s := setupServer(t)
	userToken := login(t, s, 42)
	adminToken := login(t, s, adminTGID)

	const someID = "00000000-0000-0000-0000-000000000001"
	adminRoutes := []struct{ method, path string }{
		{http.MethodGet, "/admin/products"},
		{http.MethodPost, "/admin/products"},
		{http.MethodPut, "/admin/products/" + someID},
		{http.MethodDelete, "/admin/products/" + someID},
		{http.MethodGet, "/admin/orders"},
		{http.MethodPatch, "/admin/orders/" + someID + "/status"},
		{http.MethodGet, "/admin/audit/" + someID},
	}
	for _, r := range adminRoutes {
		name := r.method + " " + r.path

		w := doJSON(t, s, r.method, r.path, "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)

		w = doJSON(t, s, r.method, r.path, "not-a-token", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)

		w = doJSON(t, s, r.method, r.path, userToken, map[string]any{})
		assert.Equal(t, http.StatusForbidden, w.Code, name)
	}

	for _, path := range []string{"/admin/products", "/admin/orders"} {
		w := doJSON(t, s, http.MethodGet, path, adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	userRoutes := []struct{ method, path string }{
		{http.MethodPost, "/orders"},
		{http.MethodGet, "/orders/me"},
		{http.MethodPost, "/payments/telegram/create-invoice"},
	}
	for _, r := range userRoutes {
		name := r.method + " " + r.path

		w := doJSON(t, s, r.method, r.path, "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)

		w = doJSON(t, s, r.method, r.path, "not-a-token", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}

	w := doJSON(t, s, http.MethodGet, "/orders/me", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestProductAdminFlow(t *testing.T) {
	s := setupServer(t)
	admin := login(t, s, adminTGID)

	// Validation details are keyed by JSON field name.
	bad := productBody("", 10, 5)
	bad["category"] = "snacks"
	w := doJSON(t, s, http.MethodPost, "/admin/products", admin, bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var verr struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	decode(t, w, &verr)
	assert.Equal(t, "Invalid product", verr.Error)
	assert.Contains(t, verr.Details, "display_name")
	assert.Contains(t, verr.Details, "category")

	unknown := productBody("Whey", 10, 5)
	unknown["colour"] = "red"
	w = doJSON(t, s, http.MethodPost, "/admin/products", admin, unknown)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	p := createProduct(t, s, admin, productBody("Whey Isolate", 29.99, 5))
	assert.Regexp(t, `^whey-isolate-[0-9a-f]{4}$`, p.Slug)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("29.99")))

	w = doJSON(t, s, http.MethodGet, "/products/"+p.Slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":29.99`)

	w = doJSON(t, s, http.MethodGet, "/products?q=isolate&pageSize=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page service.ProductPage
	decode(t, w, &page)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 5, page.PageSize)
	assert.Equal(t, int64(1), page.Total)

	update := productBody("Whey Isolate", 31, 5)
	update["slug"] = "whey-isolate"
	update["is_active"] = false
	w = doJSON(t, s, http.MethodPut, "/admin/products/"+p.ID, admin, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, "/products/whey-isolate", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodGet, "/admin/products", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Product
	decode(t, w, &all)
	assert.Len(t, all, 1)

	w = doJSON(t, s, http.MethodDelete, "/admin/products/"+p.ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = doJSON(t, s, http.MethodDelete, "/admin/products/"+p.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderAndPaymentFlow(t *testing.T) {
	s := setupServer(t)
	admin := login(t, s, adminTGID)
	ann := login(t, s, 42)
	bob := login(t, s, 43)

	whey := createProduct(t, s, admin, productBody("Whey", 10, 5))
	bar := createProduct(t, s, admin, productBody("Bar", 5, 3))

	orderBody := func(wheyQty int) map[string]any {
		return map[string]any{
			"items": []map[string]any{
				{"product_id": whey.ID, "quantity": wheyQty},
				{"product_id": bar.ID, "quantity": 3},
			},
			"customer_name":   "Ann Smith",
			"phone":           "+15550001111",
			"delivery_method": "pickup",
			"currency":        "USD",
		}
	}

	w := doJSON(t, s, http.MethodPost, "/orders", ann, orderBody(6))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Not enough stock for Whey")

	w = doJSON(t, s, http.MethodPost, "/orders", ann, map[string]any{"items": []any{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid order")

	w = doJSON(t, s, http.MethodPost, "/orders", ann, orderBody(2))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, models.OrderStatusCreated, order.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(35)), order.Subtotal.String())
	assert.Len(t, order.Items, 2)

	w = doJSON(t, s, http.MethodPost, "/payments/telegram/create-invoice", bob, map[string]any{"orderId": order.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodPost, "/payments/telegram/create-invoice", ann, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/payments/telegram/create-invoice", ann, map[string]any{"orderId": order.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"invoiceLink":"http://shop.test/pay/telegram/`+order.ID+`"}`, w.Body.String())

	w = doJSON(t, s, http.MethodPost, "/payments/telegram/mark-paid", "", map[string]any{"orderId": order.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = doJSON(t, s, http.MethodPost, "/payments/telegram/mark-paid", "", map[string]any{"orderId": order.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	var stock []models.Product
	require.NoError(t, s.db.Order("display_name").Find(&stock).Error)
	require.Len(t, stock, 2)
	assert.Equal(t, 0, stock[0].StockQuantity) // Bar
	assert.Equal(t, 3, stock[1].StockQuantity) // Whey

	w = doJSON(t, s, http.MethodGet, "/orders/me", ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Order
	decode(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, models.OrderStatusPaid, mine[0].Status)

	w = doJSON(t, s, http.MethodPatch, "/admin/orders/"+order.ID+"/status", admin, map[string]any{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPatch, "/admin/orders/"+order.ID+"/status", admin, map[string]any{"status": "SHIPPED"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &order)
	assert.Equal(t, models.OrderStatusShipped, order.Status)

	w = doJSON(t, s, http.MethodGet, "/admin/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Order
	decode(t, w, &all)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].User)
	assert.Equal(t, int64(42), all[0].User.TelegramID)
}

func TestMarkPaidDisabledByDefault(t *testing.T) {
	s := setupServer(t, func(c *config.Config) { c.Payments.DevMarkPaid = false })

	w := doJSON(t, s, http.MethodPost, "/payments/telegram/mark-paid", "", map[string]any{"orderId": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc"))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}
