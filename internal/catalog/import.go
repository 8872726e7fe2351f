package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type StockMode string

const (
	// StockSet replaces the stock level of an existing SKU.
	StockSet StockMode = "set"
	// StockAdd adds Stock (which may be negative) to the current level.
	StockAdd StockMode = "add"
)

var ErrInvalidRow = errors.New("invalid import row")

// ImportRow is one parsed catalog line. A nil IsActive keeps the current
// flag on update and defaults to active on create.
type ImportRow struct {
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	StockMode   StockMode       `json:"stock_mode"`
	IsActive    *bool           `json:"is_active"`
}

type RowError struct {
	Row   int    `json:"row"`
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

type Report struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Failed  []RowError `json:"failed"`
}

// Import upserts rows concurrently. A failing row is recorded in the report
// and does not stop the others; only context cancellation aborts the run.
func (c *Catalog) Import(ctx context.Context, rows []ImportRow) (*Report, error) {
	report := &Report{Failed: []RowError{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			created, err := c.upsert(gctx, row)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, RowError{Row: i + 1, SKU: row.SKU, Error: err.Error()})
				c.metrics.RecordImportRow(gctx, "failed")
			case created:
				report.Created++
				c.metrics.RecordImportRow(gctx, "created")
			default:
				report.Updated++
				c.metrics.RecordImportRow(gctx, "updated")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Failed, func(a, b int) bool {
		return report.Failed[a].Row < report.Failed[b].Row
	})

	log.Printf("[import] finished: rows=%d created=%d updated=%d failed=%d",
		len(rows), report.Created, report.Updated, len(report.Failed))

	return report, nil
}

func (c *Catalog) upsert(ctx context.Context, row ImportRow) (created bool, err error) {
	row, err = normalize(row)
	if err != nil {
		return false, err
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		existing, err := store.GetProductBySKU(ctx, c.db, row.SKU)
		if errors.Is(err, models.ErrProductNotFound) {
			err = c.create(ctx, row)
			if database.IsUniqueViolation(err) {
				// Another worker or request created the SKU first.
				continue
			}
			return err == nil, err
		}
		if err != nil {
			return false, err
		}

		update, err := merge(existing, row)
		if err != nil {
			return false, err
		}

		_, err = store.UpdateProductOptimistic(ctx, c.db, existing.ID, existing.Version, update)
		if errors.Is(err, database.ErrOptimisticLockFailed) {
			c.metrics.RecordConflict(ctx, "import")
			continue
		}
		return false, err
	}

	return false, fmt.Errorf("%w: sku %s changed concurrently %d times", models.ErrConcurrencyConflict, row.SKU, c.maxAttempts)
}

func (c *Catalog) create(ctx context.Context, row ImportRow) error {
	if row.Stock < 0 {
		return fmt.Errorf("%w: new sku %s cannot start with negative stock", ErrInvalidRow, row.SKU)
	}

	active := true
	if row.IsActive != nil {
		active = *row.IsActive
	}

	_, err := store.CreateProduct(ctx, c.db, store.NewProduct{
		SKU:         row.SKU,
		Title:       row.Title,
		Description: row.Description,
		Category:    row.Category,
		Price:       row.Price,
		Stock:       row.Stock,
		IsActive:    active,
	})
	return err
}

// merge computes the new row for existing. With StockAdd the delta is
// applied to the version that was read, so the version check in the update
// makes the read-add-write atomic.
func merge(existing *models.Product, row ImportRow) (store.ProductUpdate, error) {
	stock := row.Stock
	if row.StockMode == StockAdd {
		stock = existing.Stock + row.Stock
	}
	if stock < 0 {
		return store.ProductUpdate{}, &models.InsufficientStockError{
			ProductID: existing.ID,
			Name:      existing.Title,
			Requested: -row.Stock,
			Available: existing.Stock,
		}
	}

	active := existing.IsActive
	if row.IsActive != nil {
		active = *row.IsActive
	}

	return store.ProductUpdate{
		Title:       row.Title,
		Description: row.Description,
		Category:    row.Category,
		Price:       row.Price,
		Stock:       stock,
		IsActive:    active,
	}, nil
}

func normalize(row ImportRow) (ImportRow, error) {
	row.SKU = strings.TrimSpace(row.SKU)
	row.Title = strings.TrimSpace(row.Title)
	row.Category = strings.TrimSpace(row.Category)

	if row.SKU == "" {
		return row, fmt.Errorf("%w: sku is required", ErrInvalidRow)
	}
	if row.Title == "" {
		return row, fmt.Errorf("%w: title is required", ErrInvalidRow)
	}
	if row.Price.IsNegative() {
		return row, fmt.Errorf("%w: price must not be negative", ErrInvalidRow)
	}

	switch row.StockMode {
	case "":
		row.StockMode = StockSet
	case StockSet, StockAdd:
	default:
		return row, fmt.Errorf("%w: unknown stock mode %q", ErrInvalidRow, row.StockMode)
	}
	if row.StockMode == StockSet && row.Stock < 0 {
		return row, fmt.Errorf("%w: stock must not be negative", ErrInvalidRow)
	}

	return row, nil
}
