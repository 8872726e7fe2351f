// Package catalog serves product reads and the admin write paths: bulk
// import, restock and delete. Stock on an existing product is only ever
// changed through a version-checked or conditional update, never a blind
// overwrite that could erase a concurrent order's decrement.
package catalog

import (
	"context"
	"database/sql"
	"log"

	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type Catalog struct {
	db          *sql.DB
	metrics     *metrics.Metrics
	workers     int
	maxAttempts int
}

func New(db *sql.DB, m *metrics.Metrics, workers, maxAttempts int) *Catalog {
	if workers < 1 {
		workers = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Catalog{
		db:          db,
		metrics:     m,
		workers:     workers,
		maxAttempts: maxAttempts,
	}
}

func (c *Catalog) Product(ctx context.Context, id int64) (*models.Product, error) {
	return store.GetProduct(ctx, c.db, id)
}

func (c *Catalog) Products(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListProducts(ctx, c.db, filter, page, pageSize)
}

// AdjustStock applies a signed restock or write-off delta atomically.
func (c *Catalog) AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	product, err := store.AdjustStock(ctx, c.db, productID, delta)
	if err != nil {
		return nil, err
	}
	log.Printf("[catalog] stock adjusted: product=%d delta=%d stock=%d", productID, delta, product.Stock)
	return product, nil
}

func (c *Catalog) Delete(ctx context.Context, productID int64) error {
	if err := store.DeleteProduct(ctx, c.db, productID); err != nil {
		return err
	}
	log.Printf("[catalog] product deleted: product=%d", productID)
	return nil
}
