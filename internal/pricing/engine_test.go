package pricing

import "testing"

func TestComputeClampsDiscount(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 18_000}, {Qty: 3, UnitPrice: 5_000}}
	summary := Compute(items, 5_000)
	if summary.Subtotal != 33_000 {
		t.Fatalf("expected subtotal 33000, got %d", summary.Subtotal)
	}
	if summary.Total != 28_000 {
		t.Fatalf("expected total 28000, got %d", summary.Total)
	}

	over := Compute([]Item{{Qty: 1, UnitPrice: 30_000}}, 40_000)
	if over.Discount != 30_000 {
		t.Fatalf("expected discount clamped to 30000, got %d", over.Discount)
	}
	if over.Total != 0 {
		t.Fatalf("expected total 0, got %d", over.Total)
	}

	negative := Compute([]Item{{Qty: 2, UnitPrice: 10_000}}, -5_000)
	if negative.Discount != 0 {
		t.Fatalf("expected negative discount clamped to 0, got %d", negative.Discount)
	}
}

func TestComputeSkipsNonPositiveQty(t *testing.T) {
	summary := Compute([]Item{{Qty: 0, UnitPrice: 9_000}, {Qty: -2, UnitPrice: 4_000}, {Qty: 2, UnitPrice: 25_000}}, 0)
	if summary.Subtotal != 50_000 {
		t.Fatalf("expected subtotal 50000, got %d", summary.Subtotal)
	}
}

func TestSettle(t *testing.T) {
	change, err := Settle(50_000, 50_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change != 0 {
		t.Fatalf("expected zero change, got %d", change)
	}

	if _, err := Settle(28_000, 20_000); err != ErrInsufficientTender {
		t.Fatalf("expected ErrInsufficientTender, got %v", err)
	}

	change, err = Settle(0, 17_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change != 17_000 {
		t.Fatalf("expected change 17000, got %d", change)
	}
}
