package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const productColumns = `id, sku, title, description, category, price, stock, is_active, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Title,
		&product.Description,
		&product.Category,
		&product.Price,
		&product.Stock,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

type NewProduct struct {
	SKU         string
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	IsActive    bool
}

func CreateProduct(ctx context.Context, q Querier, p NewProduct) (*models.Product, error) {
	query := `
		INSERT INTO products (sku, title, description, category, price, stock, is_active, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		p.SKU, p.Title, p.Description, p.Category, p.Price, p.Stock, p.IsActive))
	if err != nil {
		if database.IsCheckViolation(err) {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidProduct, err)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func GetProductBySKU(ctx context.Context, q Querier, sku string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`

	product, err := scanProduct(q.QueryRowContext(ctx, query, sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by sku: %w", err)
	}

	return product, nil
}

// DecrementStock takes quantity units in one conditional statement. It
// returns the title and price the product had at that instant so callers
// can freeze them into order lines. Zero affected rows means the product is
// missing, inactive, or short; the caller re-reads to tell which.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (title string, price decimal.Decimal, err error) {
	err = tx.QueryRowContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND is_active
		   AND stock >= $1
		 RETURNING title, price`,
		quantity, productID).Scan(&title, &price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", decimal.Decimal{}, models.ErrInsufficientStock
		}
		return "", decimal.Decimal{}, fmt.Errorf("decrement stock: %w", err)
	}

	return title, price, nil
}

// RestoreStock is the inverse of DecrementStock, applied on cancellation.
func RestoreStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock + $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &models.ProductError{ProductID: productID, Err: models.ErrProductNotFound}
	}

	return nil
}

// AdjustStock applies a signed delta atomically and refuses to go below zero.
func AdjustStock(ctx context.Context, q Querier, productID int64, delta int) (*models.Product, error) {
	query := `
		UPDATE products
		SET stock = stock + $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2
		  AND stock + $1 >= 0
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query, delta, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			current, getErr := GetProduct(ctx, q, productID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &models.InsufficientStockError{
				ProductID: productID,
				Name:      current.Title,
				Requested: -delta,
				Available: current.Stock,
			}
		}
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	return product, nil
}

type ProductUpdate struct {
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	IsActive    bool
}

// UpdateProductOptimistic overwrites the product only if nobody else has
// touched it since version was read. Every stock mutation bumps version, so a
// concurrent order in between makes this fail with ErrOptimisticLockFailed.
func UpdateProductOptimistic(ctx context.Context, q Querier, productID int64, version int, u ProductUpdate) (*models.Product, error) {
	query := `
		UPDATE products
		SET title = $1, description = $2, category = $3, price = $4, stock = $5, is_active = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		u.Title, u.Description, u.Category, u.Price, u.Stock, u.IsActive, productID, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOptimisticLockFailed
		}
		if database.IsCheckViolation(err) {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidProduct, err)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product that no order references.
func DeleteProduct(ctx context.Context, q Querier, productID int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return models.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrProductNotFound
	}

	return nil
}

type ProductFilter struct {
	ActiveOnly bool
	Category   string
}

func ListProducts(ctx context.Context, q Querier, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	where := `WHERE ($1 = FALSE OR is_active) AND ($2 = '' OR category = $2)`

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where,
		filter.ActiveOnly, filter.Category).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products
		` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := q.QueryContext(ctx, query, filter.ActiveOnly, filter.Category, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
