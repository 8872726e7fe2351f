// Package api exposes the storefront over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/store"
)

type Carts interface {
	Get(ctx context.Context, customerID int64) (*cart.View, error)
	AddItem(ctx context.Context, customerID, productID int64, qty int) (*cart.View, error)
	UpdateQuantity(ctx context.Context, customerID, productID int64, qty int) (*cart.View, error)
	RemoveItem(ctx context.Context, customerID, productID int64) (*cart.View, error)
	Clear(ctx context.Context, customerID int64) (*cart.View, error)
}

type Checkout interface {
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*models.Order, error)
}

type Orders interface {
	Order(ctx context.Context, orderID, customerID int64) (*models.Order, error)
	Orders(ctx context.Context, customerID int64, cursor string, limit int) (*store.CursorPage, error)
	CancelOrder(ctx context.Context, orderID, customerID int64, notes string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, requested, actor, notes string) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID int64, requested string) (*models.Order, error)
	History(ctx context.Context, orderID int64) ([]models.StatusChange, error)
}

type Catalog interface {
	Product(ctx context.Context, id int64) (*models.Product, error)
	Products(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error)
	Import(ctx context.Context, rows []catalog.ImportRow) (*catalog.Report, error)
	AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error)
	Delete(ctx context.Context, productID int64) error
}

type Customers interface {
	Create(ctx context.Context, email, name, role string) (*models.Customer, error)
	List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	Carts     Carts
	Checkout  Checkout
	Orders    Orders
	Catalog   Catalog
	Customers Customers
	Payments  payment.Gateway
	DB        Pinger
}

// NewRouter wires customer routes behind authentication and admin routes
// behind an explicit admin role check. metricsHandler may be nil.
func NewRouter(h *Handler, authn auth.Authenticator, metricsPath string, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", h.health)
	if metricsHandler != nil {
		router.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	customer := router.Group("/", auth.RequireCustomer(authn))
	{
		customer.GET("/products", h.listProducts)
		customer.GET("/products/:id", h.getProduct)

		customer.GET("/cart", h.getCart)
		customer.POST("/cart/items", h.addCartItem)
		customer.PUT("/cart/items/:productID", h.updateCartItem)
		customer.DELETE("/cart/items/:productID", h.removeCartItem)
		customer.DELETE("/cart", h.clearCart)

		customer.POST("/orders", h.placeOrder)
		customer.GET("/orders", h.listOrders)
		customer.GET("/orders/:id", h.getOrder)
		customer.POST("/orders/:id/cancel", h.cancelOrder)
	}

	admin := router.Group("/admin", auth.RequireCustomer(authn), auth.RequireAdmin())
	{
		admin.GET("/products", h.adminListProducts)
		admin.GET("/products/:id", h.adminGetProduct)
		admin.POST("/products/import", h.importProducts)
		admin.POST("/products/:id/stock", h.adjustStock)
		admin.DELETE("/products/:id", h.deleteProduct)

		admin.POST("/customers", h.createCustomer)
		admin.GET("/customers", h.listCustomers)

		admin.PATCH("/orders/:id/status", h.updateOrderStatus)
		admin.PATCH("/orders/:id/payment", h.updatePaymentStatus)
		admin.GET("/orders/:id/history", h.orderHistory)
	}

	return router
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
