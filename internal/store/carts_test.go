package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/testutil"
)

func TestGetOrCreateCartIsIdempotent(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()

	customer, err := CreateCustomer(ctx, db, "cart@example.com", "Cart", "")
	if err != nil {
		t.Fatalf("Create customer: %v", err)
	}

	first, err := GetOrCreateCart(ctx, db, customer.ID)
	if err != nil {
		t.Fatalf("Create cart: %v", err)
	}
	second, err := GetOrCreateCart(ctx, db, customer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Expected one cart per customer, got %d and %d", first.ID, second.ID)
	}

	if _, err := GetOrCreateCart(ctx, db, 424242); !errors.Is(err, models.ErrCustomerNotFound) {
		t.Errorf("Expected customer not found, got: %v", err)
	}
	if _, err := GetCart(ctx, db, 424242); !errors.Is(err, models.ErrCartNotFound) {
		t.Errorf("Expected cart not found, got: %v", err)
	}
}

func TestSaveCartVersionCheck(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()

	customer, err := CreateCustomer(ctx, db, "cas@example.com", "CAS", "")
	if err != nil {
		t.Fatalf("Create customer: %v", err)
	}
	product := newTestProduct(t, db, "TEST-CART-1", 5, 10)

	cart, err := GetOrCreateCart(ctx, db, customer.ID)
	if err != nil {
		t.Fatalf("Create cart: %v", err)
	}
	stale := *cart

	if err := cart.Add(product.ID, 2, time.Now()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return SaveCart(ctx, tx, cart)
	})
	if err != nil {
		t.Fatalf("Save cart: %v", err)
	}

	stale.Items = []models.CartItem{{ProductID: product.ID, Quantity: 9, AddedAt: time.Now()}}
	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return SaveCart(ctx, tx, &stale)
	})
	if !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Expected optimistic lock failure, got: %v", err)
	}

	loaded, err := GetCart(ctx, db, customer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if loaded.Quantity(product.ID) != 2 {
		t.Errorf("Expected quantity 2, got %d", loaded.Quantity(product.ID))
	}
}

func TestCartLinesKeepDeletedProducts(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()

	customer, err := CreateCustomer(ctx, db, "lines@example.com", "Lines", "")
	if err != nil {
		t.Fatalf("Create customer: %v", err)
	}
	kept := newTestProduct(t, db, "TEST-LINE-1", 5, 10)
	gone := newTestProduct(t, db, "TEST-LINE-2", 7, 10)

	cart, err := GetOrCreateCart(ctx, db, customer.ID)
	if err != nil {
		t.Fatalf("Create cart: %v", err)
	}
	now := time.Now()
	_ = cart.Add(kept.ID, 1, now)
	_ = cart.Add(gone.ID, 1, now.Add(time.Millisecond))
	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return SaveCart(ctx, tx, cart)
	})
	if err != nil {
		t.Fatalf("Save cart: %v", err)
	}

	if err := DeleteProduct(ctx, db, gone.ID); err != nil {
		t.Fatalf("Delete product: %v", err)
	}

	lines, err := GetCartLines(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("Get cart lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0].Product == nil || lines[0].Product.ID != kept.ID {
		t.Errorf("Expected first line to carry the live product, got %+v", lines[0].Product)
	}
	if lines[1].Product != nil {
		t.Errorf("Expected deleted product to come back nil, got %+v", lines[1].Product)
	}

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return ClearCart(ctx, tx, cart.ID)
	})
	if err != nil {
		t.Fatalf("Clear cart: %v", err)
	}
	cleared, err := GetCart(ctx, db, customer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if !cleared.IsEmpty() || cleared.ID != cart.ID {
		t.Errorf("Expected the same cart emptied, got %+v", cleared)
	}
}
