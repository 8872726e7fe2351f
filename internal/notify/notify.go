// Package notify tells customers about order placement and status changes.
// Delivery failures are returned to the caller, which logs and moves on;
// they never undo the order or transition that triggered them.
package notify

import (
	"context"
	"log"

	"github.com/safar/storefront/internal/models"
)

type Notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
	StatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error
}

// LogNotifier only writes to the process log. It is used when no mail
// provider is configured.
type LogNotifier struct{}

func (LogNotifier) OrderPlaced(ctx context.Context, order *models.Order) error {
	log.Printf("[notify] order placed: order=%s customer=%d total=%s",
		order.OrderNumber, order.CustomerID, order.TotalAmount.StringFixed(2))
	return nil
}

func (LogNotifier) StatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	log.Printf("[notify] order status changed: order=%s %s -> %s",
		order.OrderNumber, from, order.Status)
	return nil
}
