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

// CartLine is a cart item joined with the live product row. Product is nil
// when the referenced product no longer exists.
type CartLine struct {
	Item    models.CartItem
	Product *models.Product
}

// GetOrCreateCart returns the customer's cart, creating an empty one on first access.
func GetOrCreateCart(ctx context.Context, q Querier, customerID int64) (*models.Cart, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO carts (customer_id, created_at, updated_at, version)
		 VALUES ($1, NOW(), NOW(), 1)
		 ON CONFLICT (customer_id) DO NOTHING`,
		customerID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, models.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("create cart: %w", err)
	}

	return GetCart(ctx, q, customerID)
}

func GetCart(ctx context.Context, q Querier, customerID int64) (*models.Cart, error) {
	return loadCart(ctx, q, customerID, false)
}

// LockCart loads the cart and holds its row lock until tx ends, so the cart
// cannot change while an order is being derived from it.
func LockCart(ctx context.Context, tx *sql.Tx, customerID int64) (*models.Cart, error) {
	return loadCart(ctx, tx, customerID, true)
}

func loadCart(ctx context.Context, q Querier, customerID int64, forUpdate bool) (*models.Cart, error) {
	query := `
		SELECT id, customer_id, created_at, updated_at, version
		FROM carts
		WHERE customer_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	cart := &models.Cart{}
	err := q.QueryRowContext(ctx, query, customerID).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
		&cart.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT product_id, quantity, added_at
		 FROM cart_items
		 WHERE cart_id = $1
		 ORDER BY added_at, product_id`,
		cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

// SaveCart persists the whole item set if the cart is still at cart.Version.
// On success cart.Version and cart.UpdatedAt reflect the stored row.
func SaveCart(ctx context.Context, tx *sql.Tx, cart *models.Cart) error {
	err := tx.QueryRowContext(ctx,
		`UPDATE carts
		 SET version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at`,
		cart.ID, cart.Version).Scan(&cart.Version, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrOptimisticLockFailed
		}
		return fmt.Errorf("save cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	for _, item := range cart.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cart_items (cart_id, product_id, quantity, added_at)
			 VALUES ($1, $2, $3, $4)`,
			cart.ID, item.ProductID, item.Quantity, item.AddedAt)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}

	return nil
}

// ClearCart empties the cart without deleting it.
func ClearCart(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE carts SET version = version + 1, updated_at = NOW() WHERE id = $1`,
		cartID)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}

	return nil
}

func GetCartLines(ctx context.Context, q Querier, cartID int64) ([]CartLine, error) {
	query := `
		SELECT ci.product_id, ci.quantity, ci.added_at,
		       p.id, p.sku, p.title, p.description, p.category, p.price, p.stock, p.is_active,
		       p.created_at, p.updated_at, p.version
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.product_id`

	rows, err := q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart lines: %w", err)
	}
	defer rows.Close()

	lines := []CartLine{}
	for rows.Next() {
		var line CartLine
		var p nullableProduct
		err := rows.Scan(
			&line.Item.ProductID,
			&line.Item.Quantity,
			&line.Item.AddedAt,
			&p.ID,
			&p.SKU,
			&p.Title,
			&p.Description,
			&p.Category,
			&p.Price,
			&p.Stock,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		line.Product = p.product()
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

type nullableProduct struct {
	ID          sql.NullInt64
	SKU         sql.NullString
	Title       sql.NullString
	Description sql.NullString
	Category    sql.NullString
	Price       decimal.NullDecimal
	Stock       sql.NullInt64
	IsActive    sql.NullBool
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
	Version     sql.NullInt64
}

func (p nullableProduct) product() *models.Product {
	if !p.ID.Valid {
		return nil
	}
	return &models.Product{
		ID:          p.ID.Int64,
		SKU:         p.SKU.String,
		Title:       p.Title.String,
		Description: p.Description.String,
		Category:    p.Category.String,
		Price:       p.Price.Decimal,
		Stock:       int(p.Stock.Int64),
		IsActive:    p.IsActive.Bool,
		CreatedAt:   p.CreatedAt.Time,
		UpdatedAt:   p.UpdatedAt.Time,
		Version:     int(p.Version.Int64),
	}
}
