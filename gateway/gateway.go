package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/service"
)

// Services are the application services the HTTP layer dispatches to.
type Services struct {
	Sessions *auth.SessionService
	Tokens   *auth.TokenIssuer
	Catalog  *service.CatalogService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Admin    *service.AdminService
}

// ReadinessCheck reports whether a backing dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

type Gateway struct {
	config   *config.Config
	services Services
	logger   *zap.Logger
	router   *gin.Engine
	checks   map[string]ReadinessCheck
	server   *http.Server
}

var setupOnce sync.Once

func setupBinding() {
	setupOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true
		decimal.MarshalJSONWithoutQuotes = true
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})
}

func NewGateway(cfg *config.Config, logger *zap.Logger, services Services) *Gateway {
	setupBinding()

	mode := cfg.Server.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	router := gin.New()
	router.Use(recoveryMiddleware(logger))
	router.Use(loggerMiddleware(logger))
	router.Use(metricsMiddleware())
	router.Use(corsMiddleware(cfg.CORS.Origin))

	return &Gateway{
		config:   cfg,
		services: services,
		logger:   logger,
		router:   router,
		checks:   make(map[string]ReadinessCheck),
	}
}

// Engine exposes the router for tests and embedding.
func (g *Gateway) Engine() *gin.Engine {
	return g.router
}

// AddReadinessCheck registers a dependency probed by GET /ready.
func (g *Gateway) AddReadinessCheck(name string, check ReadinessCheck) {
	g.checks[name] = check
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	g.router.GET("/ready", g.ready)
	g.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	g.router.POST("/auth/telegram", g.login)

	products := g.router.Group("/products")
	{
		products.GET("", g.listProducts)
		products.GET("/:slug", g.getProduct)
	}

	orders := g.router.Group("/orders", g.requireAuth())
	{
		orders.POST("", g.createOrder)
		orders.GET("/me", g.myOrders)
	}

	payments := g.router.Group("/payments/telegram")
	{
		payments.POST("/create-invoice", g.requireAuth(), g.createInvoice)
		if g.config.Payments.DevMarkPaid {
			payments.POST("/mark-paid", g.markPaid)
		}
	}

	admin := g.router.Group("/admin", g.requireAuth(), g.requireAdmin())
	{
		admin.GET("/products", g.adminListProducts)
		admin.POST("/products", g.adminCreateProduct)
		admin.PUT("/products/:id", g.adminUpdateProduct)
		admin.DELETE("/products/:id", g.adminDeleteProduct)

		admin.GET("/orders", g.adminListOrders)
		admin.PATCH("/orders/:id/status", g.adminUpdateOrderStatus)

		admin.GET("/audit/:entityId", g.adminAuditTrail)
	}

	g.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// Start serves until Shutdown is called. It returns nil after a
// graceful shutdown.
func (g *Gateway) Start() error {
	addr := g.config.Server.Addr()
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (g *Gateway) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range g.checks {
		if err := check(ctx); err != nil {
			g.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func corsMiddleware(origin string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowCredentials = true
	cfg.AddAllowHeaders("Authorization")
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = strings.Split(origin, ",")
		for i := range cfg.AllowOrigins {
			cfg.AllowOrigins[i] = strings.TrimSpace(cfg.AllowOrigins[i])
		}
	}
	return cors.New(cfg)
}
