// Package cart implements the session-local sale that a cashier builds up
// before checkout. The cart lives entirely in memory for the duration of one
// sale; nothing here touches storage.
package cart

import "github.com/kasirku/backend-pos/internal/pricing"

// Item is the catalog snapshot captured when a product is added. Later
// catalog edits never change lines already in the cart.
type Item struct {
	ID       string
	Name     string
	Price    pricing.Money
	ImageURL string
}

// Line couples an item snapshot with the selected quantity. Quantity is
// always >= 1; a line dropped to zero is removed, never stored.
type Line struct {
	Item
	Qty int
}

// Cart accumulates lines and an optional flat discount for the active sale.
type Cart struct {
	lines    []Line
	discount pricing.Money
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem appends a new line with quantity 1, or increments the quantity when
// the same product is already present. Lines match on product identity, not
// on name.
func (c *Cart) AddItem(item Item) {
	for i := range c.lines {
		if c.lines[i].ID == item.ID {
			c.lines[i].Qty++
			return
		}
	}
	c.lines = append(c.lines, Line{Item: item, Qty: 1})
}

// SetQuantity sets the quantity for the identified line. A quantity of zero
// or less removes the line. The discount is re-clamped against the new
// subtotal so the total can never go negative.
func (c *Cart) SetQuantity(id string, qty int) {
	if qty <= 0 {
		c.Remove(id)
		return
	}
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines[i].Qty = qty
			break
		}
	}
	c.reclamp()
}

// Remove deletes the identified line unconditionally.
func (c *Cart) Remove(id string) {
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			break
		}
	}
	c.reclamp()
}

// Clear empties the cart and resets any pending discount.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = 0
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtotal recomputes the sum of price times quantity on every call; no
// cached totals can go stale.
func (c *Cart) Subtotal() pricing.Money {
	items := make([]pricing.Item, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, pricing.Item{Qty: l.Qty, UnitPrice: l.Price})
	}
	return pricing.Subtotal(items)
}

// SetDiscount stores a flat discount clamped into [0, subtotal].
func (c *Cart) SetDiscount(amount pricing.Money) {
	c.discount = pricing.ClampDiscount(amount, c.Subtotal())
}

// Discount returns the currently applied discount.
func (c *Cart) Discount() pricing.Money {
	return c.discount
}

// Total returns subtotal minus discount.
func (c *Cart) Total() pricing.Money {
	return c.Subtotal() - c.discount
}

// Settle validates the tendered amount against the total and returns the
// change. The cart is left untouched so a failed settlement can be retried
// after adjusting quantities or tender.
func (c *Cart) Settle(tendered pricing.Money) (pricing.Money, error) {
	return pricing.Settle(c.Total(), tendered)
}

func (c *Cart) reclamp() {
	c.discount = pricing.ClampDiscount(c.discount, c.Subtotal())
}
