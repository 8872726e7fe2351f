package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCreatesAndUpdates(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	c := New(db, nil, 4, 3)

	var rows []ImportRow
	for i := 0; i < 20; i++ {
		rows = append(rows, ImportRow{
			SKU:   fmt.Sprintf("IMP-%02d", i),
			Title: fmt.Sprintf("Item %d", i),
			Price: decimal.RequireFromString("1.25"),
			Stock: 10,
		})
	}
	rows = append(rows, ImportRow{SKU: "", Title: "broken"})

	report, err := c.Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Created)
	assert.Equal(t, 0, report.Updated)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 21, report.Failed[0].Row)

	report, err = c.Import(ctx, []ImportRow{
		{SKU: "IMP-00", Title: "Item 0", Price: decimal.RequireFromString("2.00"), Stock: 5, StockMode: StockAdd},
		{SKU: "IMP-01", Title: "Item 1", Price: decimal.RequireFromString("2.00"), Stock: 3},
		{SKU: "IMP-02", Title: "Item 2", Price: decimal.RequireFromString("2.00"), Stock: -50, StockMode: StockAdd},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "IMP-02", report.Failed[0].SKU)

	p0, err := store.GetProductBySKU(ctx, db, "IMP-00")
	require.NoError(t, err)
	assert.Equal(t, 15, p0.Stock)
	assert.True(t, decimal.RequireFromString("2.00").Equal(p0.Price))

	p1, err := store.GetProductBySKU(ctx, db, "IMP-01")
	require.NoError(t, err)
	assert.Equal(t, 3, p1.Stock)

	p2, err := store.GetProductBySKU(ctx, db, "IMP-02")
	require.NoError(t, err)
	assert.Equal(t, 10, p2.Stock)
}

func TestImportDoesNotEraseConcurrentDecrement(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	c := New(db, nil, 1, 3)

	_, err := c.Import(ctx, []ImportRow{{SKU: "RACE", Title: "Race", Price: decimal.NewFromInt(1), Stock: 10}})
	require.NoError(t, err)

	stale, err := store.GetProductBySKU(ctx, db, "RACE")
	require.NoError(t, err)

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, _, err := store.DecrementStock(ctx, tx, stale.ID, 4)
		return err
	})
	require.NoError(t, err)

	update, err := merge(stale, ImportRow{Title: "Race", Price: decimal.NewFromInt(1), Stock: 5, StockMode: StockAdd})
	require.NoError(t, err)
	_, err = store.UpdateProductOptimistic(ctx, db, stale.ID, stale.Version, update)
	require.ErrorIs(t, err, database.ErrOptimisticLockFailed, "write based on a stale read must be refused")

	report, err := c.Import(ctx, []ImportRow{{SKU: "RACE", Title: "Race", Price: decimal.NewFromInt(1), Stock: 5, StockMode: StockAdd}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	fresh, err := store.GetProductBySKU(ctx, db, "RACE")
	require.NoError(t, err)
	assert.Equal(t, 11, fresh.Stock)
}

func TestAdjustAndDelete(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	c := New(db, nil, 2, 3)

	_, err := c.Import(ctx, []ImportRow{{SKU: "ADJ", Title: "Adj", Price: decimal.NewFromInt(1), Stock: 2}})
	require.NoError(t, err)
	p, err := store.GetProductBySKU(ctx, db, "ADJ")
	require.NoError(t, err)

	adjusted, err := c.AdjustStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, adjusted.Stock)

	_, err = c.AdjustStock(ctx, p.ID, -6)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	page, err := c.Products(ctx, store.ProductFilter{ActiveOnly: true}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, c.Delete(ctx, p.ID))
	_, err = c.Product(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}
