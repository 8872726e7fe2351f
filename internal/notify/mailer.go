package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/storefront/internal/models"
)

// CustomerDirectory resolves the recipient of an order email.
type CustomerDirectory interface {
	Customer(ctx context.Context, id int64) (*models.Customer, error)
}

// Mailer emails the order's customer through an EmailClient.
type Mailer struct {
	client      EmailClient
	directory   CustomerDirectory
	fromAddress string
	storeName   string
}

func NewMailer(client EmailClient, directory CustomerDirectory, fromAddress, storeName string) *Mailer {
	return &Mailer{
		client:      client,
		directory:   directory,
		fromAddress: fromAddress,
		storeName:   storeName,
	}
}

func (m *Mailer) OrderPlaced(ctx context.Context, order *models.Order) error {
	customer, err := m.directory.Customer(ctx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	subject := fmt.Sprintf("[%s] Order %s received", m.storeName, order.OrderNumber)
	return m.client.Send(ctx, m.fromAddress, customer.Email, subject, orderPlacedBody(customer, order, m.storeName))
}

func (m *Mailer) StatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	customer, err := m.directory.Customer(ctx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	subject := fmt.Sprintf("[%s] Order %s is now %s", m.storeName, order.OrderNumber, order.Status)
	body := fmt.Sprintf("Hello %s,\n\nYour order %s changed from %s to %s.\n\n-- \n%s",
		customer.Name, order.OrderNumber, from, order.Status, m.storeName)

	return m.client.Send(ctx, m.fromAddress, customer.Email, subject, body)
}

func orderPlacedBody(customer *models.Customer, order *models.Order, storeName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hello %s,\n\nThank you for your order %s.\n\n", customer.Name, order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %d x %s @ %s = %s\n",
			item.Quantity, item.ProductName, item.UnitPrice.StringFixed(2), item.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Payment: %s (%s)\n", order.PaymentMethod, order.PaymentStatus)

	addr := order.ShippingAddress
	fmt.Fprintf(&b, "Ship to: %s, %s, %s %s, %s\n", addr.Name, addr.Line1, addr.City, addr.PostalCode, addr.Country)

	fmt.Fprintf(&b, "\n-- \n%s", storeName)
	return b.String()
}
