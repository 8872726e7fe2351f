// Package payment hands a freshly placed order to a payment provider.
package payment

import (
	"context"
	"fmt"

	"github.com/safar/storefront/internal/models"
)

// Session is what the customer needs to complete payment. RedirectURL is
// empty for methods settled outside the storefront.
type Session struct {
	OrderID     int64  `json:"order_id"`
	Provider    string `json:"provider"`
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Gateway is invoked after PlaceOrder has committed. The order stays in
// payment status pending until the provider reports back through
// lifecycle.Manager.UpdatePaymentStatus.
type Gateway interface {
	CreateSession(ctx context.Context, order *models.Order) (*Session, error)
}

// ManualGateway covers cash on delivery and bank transfer: there is nothing
// to redirect to and payment is confirmed later by an admin.
type ManualGateway struct {
	Methods []string
}

func NewManualGateway() *ManualGateway {
	return &ManualGateway{Methods: []string{"cod", "bank_transfer"}}
}

func (g *ManualGateway) CreateSession(ctx context.Context, order *models.Order) (*Session, error) {
	if !g.supports(order.PaymentMethod) {
		return nil, fmt.Errorf("payment method %q not supported", order.PaymentMethod)
	}

	return &Session{
		OrderID:   order.ID,
		Provider:  "manual",
		Reference: order.OrderNumber,
	}, nil
}

func (g *ManualGateway) supports(method string) bool {
	for _, m := range g.Methods {
		if m == method {
			return true
		}
	}
	return false
}
