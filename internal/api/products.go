package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (h *Handler) listProducts(c *gin.Context) {
	h.products(c, store.ProductFilter{ActiveOnly: true, Category: c.Query("category")})
}

func (h *Handler) adminListProducts(c *gin.Context) {
	h.products(c, store.ProductFilter{ActiveOnly: c.Query("active") == "true", Category: c.Query("category")})
}

func (h *Handler) products(c *gin.Context, filter store.ProductFilter) {
	page := queryInt(c, "page", 1, 0)
	pageSize := queryInt(c, "page_size", defaultPageSize, maxPageSize)

	result, err := h.Catalog.Products(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getProduct hides inactive products from customers the same way the
// listing does.
func (h *Handler) getProduct(c *gin.Context) {
	h.product(c, true)
}

func (h *Handler) adminGetProduct(c *gin.Context) {
	h.product(c, false)
}

func (h *Handler) product(c *gin.Context, activeOnly bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.Catalog.Product(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if activeOnly && !product.IsActive {
		writeError(c, &models.ProductError{ProductID: id, Err: models.ErrProductNotFound})
		return
	}
	c.JSON(http.StatusOK, product)
}

type importRequest struct {
	Rows []catalog.ImportRow `json:"rows" binding:"required"`
}

func (h *Handler) importProducts(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.Catalog.Import(c.Request.Context(), req.Rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type stockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *Handler) adjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.Catalog.AdjustStock(c.Request.Context(), id, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.Catalog.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
