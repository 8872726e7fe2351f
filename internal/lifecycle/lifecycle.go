// Package lifecycle applies order status and payment status changes.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/notify"
	"github.com/safar/storefront/internal/store"
)

type Manager struct {
	db         *sql.DB
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	maxRetries int
}

func NewManager(db *sql.DB, notifier notify.Notifier, m *metrics.Metrics, maxRetries int) *Manager {
	return &Manager{
		db:         db,
		notifier:   notifier,
		metrics:    m,
		maxRetries: maxRetries,
	}
}

// UpdateStatus moves the order along one edge of the status machine. The
// order row stays locked while the edge is checked and its side effects
// applied; cancellation returns every line's quantity to stock. A status
// name outside the machine matches both ErrInvalidStatus and
// ErrInvalidTransition.
func (m *Manager) UpdateStatus(ctx context.Context, orderID int64, requested, actor, notes string) (*models.Order, error) {
	to, err := models.ParseOrderStatus(requested)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q", models.ErrInvalidTransition, err, requested)
	}

	return m.transition(ctx, orderID, to, actor, notes, nil)
}

// CancelOrder is the customer-facing cancel. An order owned by someone else
// is reported as not found.
func (m *Manager) CancelOrder(ctx context.Context, orderID, customerID int64, notes string) (*models.Order, error) {
	actor := fmt.Sprintf("customer:%d", customerID)

	return m.transition(ctx, orderID, models.OrderStatusCancelled, actor, notes, func(order *models.Order) error {
		if order.CustomerID != customerID {
			return models.ErrOrderNotFound
		}
		return nil
	})
}

func (m *Manager) transition(ctx context.Context, orderID int64, to models.OrderStatus, actor, notes string, check func(*models.Order) error) (*models.Order, error) {
	opts := database.DefaultTxOptions()
	opts.MaxRetries = m.maxRetries

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := database.WithRetry(ctx, m.db, opts, func(tx *sql.Tx) error {
		locked, err := store.GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(locked); err != nil {
				return err
			}
		}

		from = locked.Status
		if err := models.ValidateTransition(from, to); err != nil {
			return err
		}

		if to == models.OrderStatusCancelled {
			for _, item := range locked.Items {
				if err := store.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := store.UpdateOrderStatus(ctx, tx, locked, to); err != nil {
			return err
		}

		err = store.InsertStatusChange(ctx, tx, &models.StatusChange{
			OrderID:    locked.ID,
			FromStatus: from,
			ToStatus:   to,
			Actor:      actor,
			Notes:      notes,
		})
		if err != nil {
			return err
		}

		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.RecordTransition(ctx, string(from), string(to))
	log.Printf("[lifecycle] order %s: %s -> %s by %s", order.OrderNumber, from, to, actor)

	if m.notifier != nil {
		if err := m.notifier.StatusChanged(ctx, order, from); err != nil {
			log.Printf("[lifecycle] status notification failed: order=%s err=%v", order.OrderNumber, err)
			m.metrics.RecordNotificationFailure(ctx, "status_changed")
		}
	}

	return order, nil
}

// UpdatePaymentStatus sets the payment status independently of the order
// status machine.
func (m *Manager) UpdatePaymentStatus(ctx context.Context, orderID int64, requested string) (*models.Order, error) {
	status, err := models.ParsePaymentStatus(requested)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, requested)
	}

	if err := store.UpdatePaymentStatus(ctx, m.db, orderID, status); err != nil {
		return nil, err
	}
	log.Printf("[lifecycle] order %d payment status: %s", orderID, status)

	return store.GetOrder(ctx, m.db, orderID)
}

func (m *Manager) History(ctx context.Context, orderID int64) ([]models.StatusChange, error) {
	if _, err := store.GetOrder(ctx, m.db, orderID); err != nil {
		return nil, err
	}
	return store.ListStatusHistory(ctx, m.db, orderID)
}

// Order returns the order if it belongs to customerID.
func (m *Manager) Order(ctx context.Context, orderID, customerID int64) (*models.Order, error) {
	order, err := store.GetOrder(ctx, m.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

func (m *Manager) Orders(ctx context.Context, customerID int64, cursor string, limit int) (*store.CursorPage, error) {
	return store.ListOrdersCursor(ctx, m.db, customerID, cursor, limit)
}
