package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
)

// Items omitted places the caller's cart; an explicit list, even an empty
// one, places exactly that list.
type placeOrderRequest struct {
	Items           []checkout.ItemRequest `json:"items"`
	ShippingAddress models.Address         `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" binding:"required"`
}

type placeOrderResponse struct {
	Order   *models.Order    `json:"order"`
	Payment *payment.Session `json:"payment,omitempty"`
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	order, err := h.Checkout.PlaceOrder(ctx, checkout.PlaceOrderRequest{
		CustomerID:      principal(c).CustomerID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := placeOrderResponse{Order: order}
	if h.Payments != nil {
		session, err := h.Payments.CreateSession(ctx, order)
		if err != nil {
			log.Printf("[api] payment session for order %s: %v", order.OrderNumber, err)
		} else {
			resp.Payment = session
		}
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) listOrders(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize, maxPageSize)

	page, err := h.Orders.Orders(c.Request.Context(), principal(c).CustomerID, c.Query("cursor"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.Order(c.Request.Context(), id, principal(c).CustomerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req notesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	order, err := h.Orders.CancelOrder(c.Request.Context(), id, principal(c).CustomerID, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), id, req.Status, principal(c).Actor(), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

func (h *Handler) updatePaymentStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req paymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.Orders.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) orderHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	history, err := h.Orders.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "history": history})
}
