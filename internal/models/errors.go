package models

import (
	"errors"
	"fmt"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrProductInUse        = errors.New("product referenced by orders")
	ErrInvalidProduct      = errors.New("invalid product")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCartNotFound        = errors.New("cart not found")
	ErrItemNotInCart       = errors.New("item not in cart")
	ErrOrderNotFound       = errors.New("order not found")
	ErrEmptyOrder          = errors.New("order has no items")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInvalidAddress      = errors.New("invalid shipping address")
	ErrPaymentMethod       = errors.New("payment method required")
	ErrInvalidStatus       = errors.New("unknown status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ProductError names the product a not-found or unavailable failure refers to.
type ProductError struct {
	ProductID int64
	Err       error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("product %d: %v", e.ProductID, e.Err)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("#%d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func productNotFound(id int64) error {
	return &ProductError{ProductID: id, Err: ErrProductNotFound}
}

func productUnavailable(id int64) error {
	return &ProductError{ProductID: id, Err: ErrProductUnavailable}
}

// CheckPurchasable reports whether qty units of p can be bought right now.
// A nil product means the lookup found nothing.
func CheckPurchasable(id int64, p *Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if p == nil {
		return productNotFound(id)
	}
	if !p.IsActive {
		return productUnavailable(p.ID)
	}
	if p.Stock < qty {
		return &InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Title,
			Requested: qty,
			Available: p.Stock,
		}
	}
	return nil
}
