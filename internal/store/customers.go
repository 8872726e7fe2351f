package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/models"
)

const customerColumns = `id, email, name, role, created_at, updated_at, version`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	customer := &models.Customer{}
	err := row.Scan(
		&customer.ID,
		&customer.Email,
		&customer.Name,
		&customer.Role,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&customer.Version,
	)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func CreateCustomer(ctx context.Context, q Querier, email, name, role string) (*models.Customer, error) {
	if role == "" {
		role = models.RoleCustomer
	}

	query := `
		INSERT INTO customers (email, name, role, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING ` + customerColumns

	customer, err := scanCustomer(q.QueryRowContext(ctx, query, email, name, role))
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return customer, nil
}

func GetCustomer(ctx context.Context, q Querier, id int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return customer, nil
}

func ListCustomers(ctx context.Context, q Querier, page, pageSize int) (*OffsetPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(customers, total, page, pageSize), nil
}
