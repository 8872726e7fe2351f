package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/database"
)

type createCustomerRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Role  string `json:"role"`
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	customer, err := h.Customers.Create(c.Request.Context(), req.Email, req.Name, req.Role)
	if err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, errorResponse{Error: "email already registered", Code: "duplicate_email"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) listCustomers(c *gin.Context) {
	page := queryInt(c, "page", 1, 0)
	pageSize := queryInt(c, "page_size", defaultPageSize, maxPageSize)

	result, err := h.Customers.List(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
