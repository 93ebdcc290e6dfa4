// Package client is a typed Go client for the storefront HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

// APIError is returned for every non-2xx response. Body holds the raw
// response text.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed: %d", e.StatusCode)
	}
	return e.Body
}

// Message extracts the "error" field of a JSON error body.
func (e *APIError) Message() string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil || body.Error == "" {
		return e.Body
	}
	return body.Error
}

type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type ProductPage struct {
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int64            `json:"total"`
	Items    []models.Product `json:"items"`
}

type ProductQuery struct {
	Page     int
	PageSize int
	Query    string
	Category string
	Form     string
	Brand    string
	InStock  bool
	Sort     string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("q", q.Query)
	set("category", q.Category)
	set("form", q.Form)
	set("brand", q.Brand)
	set("sort", q.Sort)
	if q.InStock {
		v.Set("inStock", "true")
	}
	return v
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderRequest struct {
	Items          []OrderItem `json:"items"`
	CustomerName   string      `json:"customer_name"`
	Phone          string      `json:"phone"`
	DeliveryMethod string      `json:"delivery_method"`
	Address        *string     `json:"address,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
	Currency       string      `json:"currency"`
}

type ProductRequest struct {
	Slug        *string `json:"slug,omitempty"`
	DisplayName string  `json:"display_name"`
	Description *string `json:"description,omitempty"`
	Notes       *string `json:"notes,omitempty"`

	Category string  `json:"category"`
	Type     string  `json:"type"`
	Series   *string `json:"series,omitempty"`
	Form     string  `json:"form"`
	Flavor   *string `json:"flavor,omitempty"`

	NetWeightG               *int     `json:"net_weight_g,omitempty"`
	ServingSizeG             *float64 `json:"serving_size_g,omitempty"`
	MixWithMLWater           *int     `json:"mix_with_ml_water,omitempty"`
	RecommendedDailyServings *float64 `json:"recommended_daily_servings,omitempty"`
	ShelfLifeMonths          *int     `json:"shelf_life_months,omitempty"`
	Storage                  *string  `json:"storage,omitempty"`

	Brand   *string `json:"brand,omitempty"`
	Line    *string `json:"line,omitempty"`
	Subline *string `json:"subline,omitempty"`

	Images        []string        `json:"images"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying transport, e.g. for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

// Login exchanges Telegram launch data for a session and keeps the
// token for subsequent calls.
func (c *Client) Login(ctx context.Context, initData string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/telegram", map[string]string{"initData": initData}, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

func (c *Client) Products(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	path := "/products"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var page ProductPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Product(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(slug), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*models.Order, error) {
	var o models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/me", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateInvoice returns the invoice link for one of the caller's orders.
func (c *Client) CreateInvoice(ctx context.Context, orderID string) (string, error) {
	var inv struct {
		InvoiceLink string `json:"invoiceLink"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/telegram/create-invoice", map[string]string{"orderId": orderID}, &inv); err != nil {
		return "", err
	}
	return inv.InvoiceLink, nil
}

// MarkPaid calls the development-only payment confirmation endpoint.
func (c *Client) MarkPaid(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/payments/telegram/mark-paid", map[string]string{"orderId": orderID}, nil)
}

func (c *Client) AdminProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/admin/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) CreateProduct(ctx context.Context, req ProductRequest) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPost, "/admin/products", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, req ProductRequest) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPut, "/admin/products/"+url.PathEscape(id), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/products/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AdminOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/admin/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var o models.Order
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPatch, "/admin/orders/"+url.PathEscape(id)+"/status", body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) AuditTrail(ctx context.Context, entityID string) ([]repository.AuditLog, error) {
	var logs []repository.AuditLog
	if err := c.do(ctx, http.MethodGet, "/admin/audit/"+url.PathEscape(entityID), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
