package store

import (
	"context"
	"testing"
	"time"

	"github.com/safar/storefront/internal/testutil"
)

func TestNewOffsetPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		page      int
		pageSize  int
		wantPage  int
		wantSize  int
		wantPages int
	}{
		{"exact", 40, 2, 20, 2, 20, 2},
		{"remainder", 41, 1, 20, 1, 20, 3},
		{"empty", 0, 1, 20, 1, 20, 0},
		{"zero page size", 45, 1, 0, 1, DefaultPageSize, 3},
		{"negative page", 5, -3, 10, 1, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newOffsetPage(nil, tt.total, tt.page, tt.pageSize)
			if p.Page != tt.wantPage || p.PageSize != tt.wantSize || p.TotalPages != tt.wantPages {
				t.Errorf("Expected page=%d size=%d pages=%d, got page=%d size=%d pages=%d",
					tt.wantPage, tt.wantSize, tt.wantPages, p.Page, p.PageSize, p.TotalPages)
			}
		})
	}
}

func TestCursorRoundTripAndEmpty(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	encoded := EncodeCursor(OrderCursor{CreatedAt: ts, ID: 42})

	decoded, err := DecodeCursor(encoded)
	if err != nil {
		t.Fatalf("Decode cursor: %v", err)
	}
	if !decoded.CreatedAt.Equal(ts) || decoded.ID != 42 {
		t.Errorf("Expected %v/42, got %v/%d", ts, decoded.CreatedAt, decoded.ID)
	}

	start, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("Decode empty cursor: %v", err)
	}
	if !start.CreatedAt.After(time.Now()) {
		t.Errorf("Expected empty cursor to start after now, got %v", start.CreatedAt)
	}

	if _, err := DecodeCursor("%%%"); err == nil {
		t.Error("Expected error for malformed cursor")
	}
}

func TestListWithZeroPageSize(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()

	newTestProduct(t, db, "PAGE-1", 10, 1)
	if _, err := CreateCustomer(ctx, db, "page@example.com", "Page", ""); err != nil {
		t.Fatalf("Create customer: %v", err)
	}

	products, err := ListProducts(ctx, db, ProductFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if products.PageSize != DefaultPageSize || products.Page != 1 || products.Total != 1 {
		t.Errorf("Expected page 1 of size %d with 1 product, got %+v", DefaultPageSize, products)
	}

	customers, err := ListCustomers(ctx, db, 0, -5)
	if err != nil {
		t.Fatalf("List customers: %v", err)
	}
	if customers.PageSize != DefaultPageSize || customers.Total != 1 {
		t.Errorf("Expected size %d with 1 customer, got %+v", DefaultPageSize, customers)
	}
}
