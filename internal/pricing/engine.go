package pricing

import "errors"

// Money represents a monetary value stored in minor units (rupiah).
type Money = int64

// ErrInsufficientTender is returned when the tendered cash does not cover the total.
var ErrInsufficientTender = errors.New("tendered amount is below the payable total")

// Item describes a line item used for totals calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates the monetary fields of a sale.
type Summary struct {
	Subtotal Money
	Discount Money
	Total    Money
}

// Subtotal sums price multiplied by quantity over the provided items.
// Lines with a non-positive quantity contribute nothing.
func Subtotal(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	return subtotal
}

// ClampDiscount forces a flat discount into the [0, subtotal] range. A
// discount can never invert the sign of the total or exceed what is owed.
func ClampDiscount(discount, subtotal Money) Money {
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}

// Compute calculates the sale summary given the items and a flat discount.
func Compute(items []Item, discount Money) Summary {
	subtotal := Subtotal(items)
	discount = ClampDiscount(discount, subtotal)
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal - discount,
	}
}

// Settle validates the tendered cash against the total and returns the change.
func Settle(total, tendered Money) (Money, error) {
	if tendered < total {
		return 0, ErrInsufficientTender
	}
	return tendered - total, nil
}
