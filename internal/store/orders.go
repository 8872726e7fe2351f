package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/models"
)

const orderColumns = `id, customer_id, order_number, status, payment_status, total_amount,
	shipping_address, payment_method, created_at, updated_at, version`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.OrderNumber,
		&order.Status,
		&order.PaymentStatus,
		&order.TotalAmount,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func generateOrderNumber() string {
	return "ORD-" + uuid.NewString()
}

// InsertOrder writes the order row and its line items. ID, OrderNumber,
// timestamps and Version are filled in from the database.
func InsertOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	order.OrderNumber = generateOrderNumber()

	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_id, order_number, status, payment_status, total_amount,
		                     shipping_address, payment_method, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		 RETURNING id, created_at, updated_at, version`,
		order.CustomerID, order.OrderNumber, order.Status, order.PaymentStatus, order.TotalAmount,
		order.ShippingAddress, order.PaymentMethod).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())
			 RETURNING id, created_at`,
			item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal).Scan(
			&item.ID,
			&item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	return nil
}

func GetOrder(ctx context.Context, q Querier, id int64) (*models.Order, error) {
	return loadOrder(ctx, q, id, false)
}

// GetOrderForUpdate loads the order and row-locks it until tx ends.
func GetOrderForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return loadOrder(ctx, tx, id, true)
}

func loadOrder(ctx context.Context, q Querier, id int64, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func getOrderItems(ctx context.Context, q Querier, orderID int64) ([]models.OrderItem, error) {
	itemsQuery := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := q.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func ListOrdersCursor(ctx context.Context, q Querier, customerID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, customerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus writes status only; line items and total stay untouched.
func UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *models.Order, status models.OrderStatus) error {
	err := tx.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING status, updated_at, version`,
		status, order.ID).Scan(&order.Status, &order.UpdatedAt, &order.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrOrderNotFound
		}
		return fmt.Errorf("update order status: %w", err)
	}

	return nil
}

func UpdatePaymentStatus(ctx context.Context, q Querier, orderID int64, status models.PaymentStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2`,
		status, orderID)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrOrderNotFound
	}

	return nil
}

func InsertStatusChange(ctx context.Context, tx *sql.Tx, change *models.StatusChange) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO order_status_history (order_id, from_status, to_status, actor, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, created_at`,
		change.OrderID, change.FromStatus, change.ToStatus, change.Actor, change.Notes).Scan(
		&change.ID,
		&change.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record status change: %w", err)
	}

	return nil
}

func ListStatusHistory(ctx context.Context, q Querier, orderID int64) ([]models.StatusChange, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, from_status, to_status, actor, notes, created_at
		 FROM order_status_history
		 WHERE order_id = $1
		 ORDER BY created_at, id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	history := []models.StatusChange{}
	for rows.Next() {
		var change models.StatusChange
		err := rows.Scan(
			&change.ID,
			&change.OrderID,
			&change.FromStatus,
			&change.ToStatus,
			&change.Actor,
			&change.Notes,
			&change.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		history = append(history, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return history, nil
}
