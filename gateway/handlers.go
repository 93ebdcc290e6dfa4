package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
)

func (g *Gateway) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, "initData required", err)
		return
	}

	session, err := g.services.Sessions.Login(c.Request.Context(), req.InitData)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (g *Gateway) listProducts(c *gin.Context) {
	q := service.CatalogQuery{
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Form:     c.Query("form"),
		Brand:    c.Query("brand"),
		InStock:  c.Query("inStock") == "true",
		Sort:     service.SortKey(c.Query("sort")),
	}

	page, err := g.services.Catalog.List(c.Request.Context(), q)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (g *Gateway) getProduct(c *gin.Context) {
	product, err := g.services.Catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, "Invalid order", err)
		return
	}

	order, err := g.services.Orders.Place(c.Request.Context(), mustClaims(c).UserID, req.toInput())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) myOrders(c *gin.Context) {
	orders, err := g.services.Orders.ListMine(c.Request.Context(), mustClaims(c).UserID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (g *Gateway) createInvoice(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, "orderId required", err)
		return
	}

	invoice, err := g.services.Payments.CreateInvoice(c.Request.Context(), mustClaims(c).UserID, req.OrderID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (g *Gateway) markPaid(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, "orderId required", err)
		return
	}

	if err := g.services.Payments.ConfirmPayment(c.Request.Context(), req.OrderID); err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (g *Gateway) adminListProducts(c *gin.Context) {
	products, err := g.services.Admin.ListProducts(c.Request.Context())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (g *Gateway) adminCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, "Invalid product", err)
		return
	}

	product, err := g.services.Admin.CreateProduct(c.Request.Context(), mustClaims(c).UserID, req.toInput())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) adminUpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, "Invalid product", err)
		return
	}

	product, err := g.services.Admin.UpdateProduct(c.Request.Context(), mustClaims(c).UserID, c.Param("id"), req.toInput())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) adminDeleteProduct(c *gin.Context) {
	if err := g.services.Admin.DeleteProduct(c.Request.Context(), mustClaims(c).UserID, c.Param("id")); err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (g *Gateway) adminListOrders(c *gin.Context) {
	orders, err := g.services.Admin.ListOrders(c.Request.Context())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (g *Gateway) adminUpdateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, "Invalid status", err)
		return
	}

	order, err := g.services.Admin.UpdateOrderStatus(c.Request.Context(), mustClaims(c).UserID, c.Param("id"), models.OrderStatus(req.Status))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) adminAuditTrail(c *gin.Context) {
	logs, err := g.services.Admin.AuditTrail(c.Request.Context(), c.Param("entityId"), int64(queryInt(c, "limit")))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// queryInt reads an integer query parameter; anything unparsable is 0
// and left to the service defaults.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
