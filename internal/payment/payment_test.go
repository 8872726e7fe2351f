package payment

import (
	"context"
	"testing"

	"github.com/safar/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualGateway(t *testing.T) {
	g := NewManualGateway()
	order := &models.Order{ID: 3, OrderNumber: "ORD-3", PaymentMethod: "cod"}

	session, err := g.CreateSession(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, int64(3), session.OrderID)
	assert.Equal(t, "ORD-3", session.Reference)
	assert.Empty(t, session.RedirectURL)

	order.PaymentMethod = "card"
	_, err = g.CreateSession(context.Background(), order)
	assert.Error(t, err)
}
