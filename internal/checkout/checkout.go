// Package checkout turns a cart or an explicit item list into an order.
//
// Validation, stock decrements, the order write and the cart clear run in
// one transaction: a failed placement leaves no order and no stock change
// behind, so callers can safely retry.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/notify"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
)

const (
	SourceCart  = "cart"
	SourceItems = "items"
)

type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PlaceOrderRequest places the customer's cart when Items is nil, otherwise
// exactly the listed items.
type PlaceOrderRequest struct {
	CustomerID      int64
	Items           []ItemRequest
	ShippingAddress models.Address
	PaymentMethod   string
}

func (r PlaceOrderRequest) source() string {
	if r.Items == nil {
		return SourceCart
	}
	return SourceItems
}

type Service struct {
	db         *sql.DB
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	maxRetries int
}

func NewService(db *sql.DB, notifier notify.Notifier, m *metrics.Metrics, maxRetries int) *Service {
	return &Service{
		db:         db,
		notifier:   notifier,
		metrics:    m,
		maxRetries: maxRetries,
	}
}

func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	start := time.Now()

	order, err := s.placeOrder(ctx, req)
	s.metrics.RecordPlacement(ctx, req.source(), time.Since(start), failureReason(err))
	if err != nil {
		if errors.Is(err, models.ErrConcurrencyConflict) {
			s.metrics.RecordConflict(ctx, "place_order")
		}
		return nil, err
	}

	log.Printf("[checkout] order placed: order=%s customer=%d items=%d total=%s",
		order.OrderNumber, order.CustomerID, len(order.Items), order.TotalAmount.StringFixed(2))

	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, order); err != nil {
			log.Printf("[checkout] order placed notification failed: order=%s err=%v", order.OrderNumber, err)
			s.metrics.RecordNotificationFailure(ctx, "order_placed")
		}
	}

	return order, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		return nil, models.ErrPaymentMethod
	}

	var requested []models.CartItem
	if req.Items != nil {
		merged, err := mergeItems(req.Items)
		if err != nil {
			return nil, err
		}
		requested = merged
	}

	opts := database.DefaultTxOptions()
	opts.MaxRetries = s.maxRetries

	var order *models.Order
	err := database.WithRetry(ctx, s.db, opts, func(tx *sql.Tx) error {
		if _, err := store.GetCustomer(ctx, tx, req.CustomerID); err != nil {
			return err
		}

		items := requested
		var cart *models.Cart
		if req.Items == nil {
			locked, err := store.LockCart(ctx, tx, req.CustomerID)
			if errors.Is(err, models.ErrCartNotFound) {
				// Carts are created lazily; no cart is an empty cart.
				return models.ErrEmptyOrder
			}
			if err != nil {
				return err
			}
			cart = locked
			items = cart.Items
		}
		if len(items) == 0 {
			return models.ErrEmptyOrder
		}

		if err := validateItems(ctx, tx, items); err != nil {
			return err
		}

		lines, err := takeStock(ctx, tx, items)
		if err != nil {
			return err
		}

		placed := &models.Order{
			CustomerID:      req.CustomerID,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			TotalAmount:     models.OrderItemsTotal(lines),
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   paymentMethod,
			Items:           lines,
		}
		if err := store.InsertOrder(ctx, tx, placed); err != nil {
			return err
		}

		if cart != nil {
			if err := store.ClearCart(ctx, tx, cart.ID); err != nil {
				return err
			}
		}

		order = placed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// mergeItems folds repeated products into one line, keeping the position of
// the first occurrence.
func mergeItems(items []ItemRequest) ([]models.CartItem, error) {
	merged := make([]models.CartItem, 0, len(items))
	index := make(map[int64]int, len(items))

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, &models.ProductError{ProductID: item.ProductID, Err: models.ErrInvalidQuantity}
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, models.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return merged, nil
}

// validateItems checks every line in input order before any stock is taken.
func validateItems(ctx context.Context, tx *sql.Tx, items []models.CartItem) error {
	for _, item := range items {
		if err := checkItem(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func checkItem(ctx context.Context, tx *sql.Tx, item models.CartItem) error {
	product, err := store.GetProduct(ctx, tx, item.ProductID)
	if err != nil && !errors.Is(err, models.ErrProductNotFound) {
		return err
	}
	return models.CheckPurchasable(item.ProductID, product, item.Quantity)
}

// takeStock decrements each product with a conditional update and freezes
// the title and price returned by that same statement into the order line.
func takeStock(ctx context.Context, tx *sql.Tx, items []models.CartItem) ([]models.OrderItem, error) {
	lines := make([]models.OrderItem, 0, len(items))

	for _, item := range items {
		title, price, err := store.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			if !errors.Is(err, models.ErrInsufficientStock) {
				return nil, err
			}
			// Another order got there between validation and decrement.
			if err := checkItem(ctx, tx, item); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("product %d: %w", item.ProductID, database.ErrOptimisticLockFailed)
		}

		lines = append(lines, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: title,
			Quantity:    item.Quantity,
			UnitPrice:   price,
			Subtotal:    price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	return lines, nil
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, models.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, models.ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, models.ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, models.ErrCartNotFound):
		return "cart_not_found"
	case errors.Is(err, models.ErrCustomerNotFound):
		return "customer_not_found"
	case errors.Is(err, models.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, models.ErrInvalidAddress), errors.Is(err, models.ErrPaymentMethod):
		return "invalid_request"
	case errors.Is(err, models.ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}
