package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceMutations(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	svc := NewService(db, 3)

	customer, err := store.CreateCustomer(ctx, db, "cart-svc@example.com", "Cart", "")
	require.NoError(t, err)
	product, err := store.CreateProduct(ctx, db, store.NewProduct{
		SKU: "CART-A", Title: "A", Price: decimal.RequireFromString("10.00"), Stock: 5, IsActive: true,
	})
	require.NoError(t, err)

	view, err := svc.Get(ctx, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	view, err = svc.AddItem(ctx, customer.ID, product.ID, 2)
	require.NoError(t, err)
	view, err = svc.AddItem(ctx, customer.ID, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("30.00").Equal(view.Total))

	_, err = svc.AddItem(ctx, customer.ID, product.ID, 3)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	reloaded, err := store.GetProduct(ctx, db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Stock, "advisory check must not touch stock")

	_, err = svc.AddItem(ctx, customer.ID, 987654, 1)
	assert.ErrorIs(t, err, models.ErrProductNotFound)

	_, err = svc.UpdateQuantity(ctx, customer.ID, 987654, 2)
	assert.ErrorIs(t, err, models.ErrItemNotInCart)

	view, err = svc.UpdateQuantity(ctx, customer.ID, product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Lines[0].Quantity)

	view, err = svc.UpdateQuantity(ctx, customer.ID, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	_, err = svc.RemoveItem(ctx, customer.ID, product.ID)
	assert.ErrorIs(t, err, models.ErrItemNotInCart)
}

func TestServiceRejectsInactiveProduct(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	svc := NewService(db, 3)

	customer, err := store.CreateCustomer(ctx, db, "inactive@example.com", "Inactive", "")
	require.NoError(t, err)
	product, err := store.CreateProduct(ctx, db, store.NewProduct{
		SKU: "CART-OFF", Title: "Off", Price: decimal.NewFromInt(1), Stock: 5, IsActive: false,
	})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, customer.ID, product.ID, 1)
	assert.ErrorIs(t, err, models.ErrProductUnavailable)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	svc := NewService(db, 10)

	customer, err := store.CreateCustomer(ctx, db, "race@example.com", "Race", "")
	require.NoError(t, err)
	product, err := store.CreateProduct(ctx, db, store.NewProduct{
		SKU: "CART-RACE", Title: "Race", Price: decimal.NewFromInt(1), Stock: 100, IsActive: true,
	})
	require.NoError(t, err)

	_, err = svc.Clear(ctx, customer.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, customer.ID, product.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, models.ErrConcurrencyConflict)
			}
		}()
	}
	wg.Wait()

	view, err := svc.Get(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, succeeded, view.Lines[0].Quantity)
}
