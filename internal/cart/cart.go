// Package cart loads, mutates and persists a customer's cart. Every mutation
// is a single read-modify-write guarded by the cart's version, so concurrent
// requests for the same customer never interleave their edits.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
)

const (
	ReasonDeleted  = "deleted"
	ReasonInactive = "inactive"

	// ReasonShort marks a line asking for more than is in stock right now.
	// It stays available and priced; placement is what enforces stock.
	ReasonShort = "short"
)

type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
	AddedAt   time.Time       `json:"added_at"`
}

// View is a cart priced against live product data. Lines whose product was
// deleted or deactivated stay in the cart but are excluded from Total and
// listed in Unavailable. Short lines are still counted.
type View struct {
	CartID      int64           `json:"cart_id"`
	CustomerID  int64           `json:"customer_id"`
	Lines       []Line          `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	Unavailable []int64         `json:"unavailable"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

type Service struct {
	db         *sql.DB
	maxRetries int
}

func NewService(db *sql.DB, maxRetries int) *Service {
	return &Service{db: db, maxRetries: maxRetries}
}

// Get returns the customer's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, customerID int64) (*View, error) {
	cart, err := store.GetOrCreateCart(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}

	lines, err := store.GetCartLines(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	return buildView(cart, lines), nil
}

// AddItem merges qty into the cart. The stock check is advisory; stock is
// only taken when the order is placed.
func (s *Service) AddItem(ctx context.Context, customerID, productID int64, qty int) (*View, error) {
	if qty < 1 {
		return nil, models.ErrInvalidQuantity
	}

	return s.mutate(ctx, customerID, func(tx *sql.Tx, cart *models.Cart, now time.Time) error {
		if err := checkProduct(ctx, tx, productID, cart.Quantity(productID)+qty); err != nil {
			return err
		}
		return cart.Add(productID, qty, now)
	})
}

// UpdateQuantity replaces a line's quantity; qty <= 0 removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, productID int64, qty int) (*View, error) {
	return s.mutate(ctx, customerID, func(tx *sql.Tx, cart *models.Cart, now time.Time) error {
		if qty <= 0 {
			return cart.Remove(productID, now)
		}
		if cart.Quantity(productID) == 0 {
			return models.ErrItemNotInCart
		}
		if err := checkProduct(ctx, tx, productID, qty); err != nil {
			return err
		}
		return cart.SetQuantity(productID, qty, now)
	})
}

func (s *Service) RemoveItem(ctx context.Context, customerID, productID int64) (*View, error) {
	return s.mutate(ctx, customerID, func(tx *sql.Tx, cart *models.Cart, now time.Time) error {
		return cart.Remove(productID, now)
	})
}

func (s *Service) Clear(ctx context.Context, customerID int64) (*View, error) {
	return s.mutate(ctx, customerID, func(tx *sql.Tx, cart *models.Cart, now time.Time) error {
		cart.Clear(now)
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, customerID int64, fn func(*sql.Tx, *models.Cart, time.Time) error) (*View, error) {
	if _, err := store.GetOrCreateCart(ctx, s.db, customerID); err != nil {
		return nil, err
	}

	opts := database.DefaultTxOptions()
	opts.MaxRetries = s.maxRetries

	err := database.WithRetry(ctx, s.db, opts, func(tx *sql.Tx) error {
		cart, err := store.GetCart(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if err := fn(tx, cart, time.Now()); err != nil {
			return err
		}
		return store.SaveCart(ctx, tx, cart)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, customerID)
}

func checkProduct(ctx context.Context, q store.Querier, productID int64, qty int) error {
	product, err := store.GetProduct(ctx, q, productID)
	if err != nil && !errors.Is(err, models.ErrProductNotFound) {
		return err
	}
	return models.CheckPurchasable(productID, product, qty)
}

func buildView(cart *models.Cart, lines []store.CartLine) *View {
	view := &View{
		CartID:      cart.ID,
		CustomerID:  cart.CustomerID,
		Lines:       make([]Line, 0, len(lines)),
		Total:       decimal.Zero,
		Unavailable: []int64{},
		UpdatedAt:   cart.UpdatedAt,
		Version:     cart.Version,
	}

	for _, cl := range lines {
		line := Line{
			ProductID: cl.Item.ProductID,
			Quantity:  cl.Item.Quantity,
			AddedAt:   cl.Item.AddedAt,
		}

		switch {
		case cl.Product == nil:
			line.Reason = ReasonDeleted
		case !cl.Product.IsActive:
			line.Name = cl.Product.Title
			line.Reason = ReasonInactive
		default:
			line.Name = cl.Product.Title
			line.UnitPrice = cl.Product.Price
			line.Subtotal = cl.Product.Price.Mul(decimal.NewFromInt(int64(cl.Item.Quantity)))
			line.Stock = cl.Product.Stock
			line.Available = true
			if cl.Product.Stock < cl.Item.Quantity {
				line.Reason = ReasonShort
			}
			view.Total = view.Total.Add(line.Subtotal)
		}

		if !line.Available {
			view.Unavailable = append(view.Unavailable, line.ProductID)
		}
		view.Lines = append(view.Lines, line)
	}

	return view
}
