package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/cart"
)

func TestAddItemMergesByIdentity(t *testing.T) {
	c := cart.New()
	c.AddItem(cart.Item{ID: "p1", Name: "Nasi Goreng Spesial", Price: 25_000})
	c.AddItem(cart.Item{ID: "p1", Name: "Nasi Goreng Spesial", Price: 25_000})
	c.AddItem(cart.Item{ID: "p2", Name: "Es Teh Manis", Price: 5_000})

	lines := c.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, 2, lines[0].Qty)
	require.Equal(t, 1, lines[1].Qty)
	require.EqualValues(t, 55_000, c.Subtotal())
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	c := cart.New()
	c.AddItem(cart.Item{ID: "p1", Price: 10_000})
	c.AddItem(cart.Item{ID: "p2", Price: 4_000})

	c.SetQuantity("p1", 3)
	require.EqualValues(t, 34_000, c.Subtotal())

	c.SetQuantity("p2", 0)
	require.Len(t, c.Lines(), 1)

	c.Remove("p1")
	require.Empty(t, c.Lines())
	require.EqualValues(t, 0, c.Subtotal())
}

func TestDiscountClampsAndReclamps(t *testing.T) {
	c := cart.New()
	c.AddItem(cart.Item{ID: "p1", Price: 30_000})

	c.SetDiscount(40_000)
	require.EqualValues(t, 30_000, c.Discount())
	require.EqualValues(t, 0, c.Total())

	change, err := c.Settle(17_000)
	require.NoError(t, err)
	require.EqualValues(t, 17_000, change)

	c.SetDiscount(-5_000)
	require.EqualValues(t, 0, c.Discount())

	// discount entered first, subtotal shrinks afterwards
	c.AddItem(cart.Item{ID: "p2", Price: 8_000})
	c.SetDiscount(20_000)
	c.Remove("p1")
	require.EqualValues(t, 8_000, c.Discount())
	require.EqualValues(t, 0, c.Total())
}

func TestSettleScenarios(t *testing.T) {
	c := cart.New()
	c.AddItem(cart.Item{ID: "p1", Price: 25_000})
	c.SetQuantity("p1", 2)

	change, err := c.Settle(50_000)
	require.NoError(t, err)
	require.EqualValues(t, 0, change)

	c.Clear()
	require.EqualValues(t, 0, c.Discount())

	c.AddItem(cart.Item{ID: "a", Price: 18_000})
	c.AddItem(cart.Item{ID: "b", Price: 5_000})
	c.SetQuantity("b", 3)
	c.SetDiscount(5_000)
	require.EqualValues(t, 33_000, c.Subtotal())
	require.EqualValues(t, 28_000, c.Total())

	_, err = c.Settle(20_000)
	require.Error(t, err)
	// failed settlement leaves the cart intact for retry
	require.EqualValues(t, 28_000, c.Total())
}
