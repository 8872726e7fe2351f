package models

import "time"

// Cart holds at most one CartItem per product. It is loaded, mutated in
// memory and persisted as a whole; the store guards writes with Version.
type Cart struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Version    int        `json:"version"`
}

type CartItem struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Add merges qty into an existing line or appends a new one.
func (c *Cart) Add(productID int64, qty int, now time.Time) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if idx := c.indexOf(productID); idx >= 0 {
		c.Items[idx].Quantity += qty
	} else {
		c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: qty, AddedAt: now})
	}
	c.UpdatedAt = now
	return nil
}

// SetQuantity replaces the quantity of an existing line. qty <= 0 removes it.
func (c *Cart) SetQuantity(productID int64, qty int, now time.Time) error {
	if qty <= 0 {
		return c.Remove(productID, now)
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotInCart
	}
	c.Items[idx].Quantity = qty
	c.UpdatedAt = now
	return nil
}

func (c *Cart) Remove(productID int64, now time.Time) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotInCart
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.UpdatedAt = now
	return nil
}

func (c *Cart) Clear(now time.Time) {
	c.Items = []CartItem{}
	c.UpdatedAt = now
}

// Quantity returns the current quantity for productID, or 0 if absent.
func (c *Cart) Quantity(productID int64) int {
	if idx := c.indexOf(productID); idx >= 0 {
		return c.Items[idx].Quantity
	}
	return 0
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) indexOf(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
