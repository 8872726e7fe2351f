package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type errorResponse struct {
	Error     string             `json:"error"`
	Code      string             `json:"code"`
	ProductID int64              `json:"product_id,omitempty"`
	Requested int                `json:"requested,omitempty"`
	Available *int               `json:"available,omitempty"`
	From      models.OrderStatus `json:"from,omitempty"`
	To        models.OrderStatus `json:"to,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{models.ErrInvalidAddress, http.StatusBadRequest, "invalid_address"},
	{models.ErrPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{models.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{catalog.ErrInvalidRow, http.StatusBadRequest, "invalid_row"},
	{auth.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	{store.ErrInvalidCursor, http.StatusBadRequest, "invalid_cursor"},
	{models.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{models.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{models.ErrCartNotFound, http.StatusNotFound, "cart_not_found"},
	{models.ErrItemNotInCart, http.StatusNotFound, "item_not_in_cart"},
	{models.ErrCustomerNotFound, http.StatusNotFound, "customer_not_found"},
	{models.ErrProductUnavailable, http.StatusUnprocessableEntity, "product_unavailable"},
	{models.ErrEmptyOrder, http.StatusUnprocessableEntity, "empty_order"},
	{models.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{models.ErrProductInUse, http.StatusConflict, "product_in_use"},
	{models.ErrInvalidProduct, http.StatusBadRequest, "invalid_product"},
	{models.ErrConcurrencyConflict, http.StatusConflict, "concurrency_conflict"},
}

func writeError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}

		resp := errorResponse{Error: err.Error(), Code: e.code}

		var stockErr *models.InsufficientStockError
		var productErr *models.ProductError
		var transitionErr *models.InvalidTransitionError
		switch {
		case errors.As(err, &stockErr):
			resp.ProductID = stockErr.ProductID
			resp.Requested = stockErr.Requested
			resp.Available = &stockErr.Available
		case errors.As(err, &productErr):
			resp.ProductID = productErr.ProductID
		case errors.As(err, &transitionErr):
			resp.From = transitionErr.From
			resp.To = transitionErr.To
		}

		c.JSON(e.status, resp)
		return
	}

	log.Printf("[api] %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "bad_request"})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid " + name, Code: "bad_request"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def, limit int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	if limit > 0 && v > limit {
		return limit
	}
	return v
}

func principal(c *gin.Context) auth.Principal {
	p, _ := auth.FromContext(c)
	return p
}
