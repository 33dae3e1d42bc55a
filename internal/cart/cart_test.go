package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oakline/storefront/internal/catalog"
	"github.com/oakline/storefront/internal/pricing"
)

func testPolicy() pricing.Policy {
	return pricing.Policy{
		CryptoDiscountPercent:  decimal.NewFromInt(10),
		RevolutDiscountPercent: decimal.NewFromInt(5),
		FreeShippingThreshold:  decimal.NewFromInt(100),
		StandardShippingRate:   decimal.NewFromInt(10),
		TaxRate:                decimal.NewFromFloat(0.08),
		MinimumOrderAmount:     decimal.NewFromInt(500),
	}
}

func testVariant(id string, price int64, minOrder, maxOrder int) catalog.Variant {
	return catalog.Variant{
		ID:       id,
		Name:     "variant " + id,
		Price:    decimal.NewFromInt(price),
		MinOrder: minOrder,
		MaxOrder: maxOrder,
		InStock:  true,
	}
}

func testInfo() ProductInfo { return ProductInfo{Name: "test product"} }

func TestAddItemClampsToMaxOrder(t *testing.T) {
	c := newCart("c1", testPolicy())
	v := testVariant("v1", 50, 1, 3)

	c.AddItem("p1", testInfo(), v, 2)
	c.AddItem("p1", testInfo(), v, 2)

	items := c.Items()
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Quantity, "repeated add must clamp at maxOrder, never exceed it")
}

func TestAddItemClampsNewLineToMinOrder(t *testing.T) {
	c := newCart("c1", testPolicy())
	v := testVariant("v1", 50, 4, 10)

	c.AddItem("p1", testInfo(), v, 1)

	items := c.Items()
	require.Len(t, items, 1)
	require.Equal(t, 4, items[0].Quantity)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 0)
	require.Equal(t, 1, c.Items()[0].Quantity)
}

func TestAddItemSetsOpenHint(t *testing.T) {
	c := newCart("c1", testPolicy())
	require.False(t, c.shouldOpen)
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 1)
	require.True(t, c.shouldOpen)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 2)

	c.UpdateQuantity("p1", "v1", 0)
	require.Empty(t, c.Items(), "zero quantity must delete the line item")

	// Removing the now-absent key again is a no-op, not an error.
	c.RemoveItem("p1", "v1")
	require.Empty(t, c.Items())
}

func TestUpdateQuantityClampsBothBounds(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 2, 6), 3)

	c.UpdateQuantity("p1", "v1", 99)
	require.Equal(t, 6, c.Items()[0].Quantity)

	c.UpdateQuantity("p1", "v1", 1)
	require.Equal(t, 2, c.Items()[0].Quantity)
}

func TestUpdateQuantityUnknownKeyIsNoop(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 2)
	c.UpdateQuantity("p1", "other", 5)
	c.UpdateQuantity("ghost", "v1", 5)
	require.Equal(t, 2, c.Items()[0].Quantity)
}

func TestTotalsRecomputedOnEveryMutation(t *testing.T) {
	c := newCart("c1", testPolicy())
	v := testVariant("v1", 50, 1, 10)

	c.AddItem("p1", testInfo(), v, 3)
	require.Equal(t, "150", c.Totals().Subtotal.String())
	require.Equal(t, "162", c.Totals().Total.String())

	c.UpdateQuantity("p1", "v1", 1)
	require.Equal(t, "50", c.Totals().Subtotal.String())

	c.RemoveItem("p1", "v1")
	require.True(t, c.Totals().Total.IsZero())
}

func TestSetPaymentMethodRecomputesWithoutTouchingItems(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 3)
	before := c.Items()

	c.SetPaymentMethod(pricing.MethodCrypto)
	require.Equal(t, "15", c.Totals().Discount.String())
	require.Equal(t, "145.8", c.Totals().Total.String())

	c.SetPaymentMethod(pricing.MethodCard)
	require.True(t, c.Totals().Discount.IsZero())

	after := c.Items()
	require.Equal(t, len(before), len(after))
	for i := range before {
		require.Equal(t, before[i].ProductID, after[i].ProductID)
		require.Equal(t, before[i].VariantID, after[i].VariantID)
		require.Equal(t, before[i].Quantity, after[i].Quantity)
	}
}

func TestClearResetsMethodAndTotals(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 3)
	c.SetPaymentMethod(pricing.MethodRevolut)

	c.Clear()
	require.Empty(t, c.Items())
	require.Equal(t, pricing.DefaultMethod, c.Method())
	require.True(t, c.Totals().Total.IsZero())
	require.False(t, c.shouldOpen)
}

func TestSnapshotExcludesPaymentMethod(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 2)
	c.SetPaymentMethod(pricing.MethodCrypto)

	restored := newCart("c1", testPolicy())
	restored.restore(c.Snapshot())

	require.Equal(t, pricing.DefaultMethod, restored.Method())
	require.Len(t, restored.Items(), 1)
	require.Equal(t, 2, restored.Items()[0].Quantity)
	require.False(t, restored.shouldOpen)
	require.True(t, restored.Totals().Discount.IsZero())
}

func TestLineItemsKeyedByProductAndVariant(t *testing.T) {
	c := newCart("c1", testPolicy())
	c.AddItem("p1", testInfo(), testVariant("v1", 50, 1, 10), 1)
	c.AddItem("p1", testInfo(), testVariant("v2", 80, 1, 10), 1)
	c.AddItem("p2", testInfo(), testVariant("v1", 20, 1, 10), 1)

	require.Len(t, c.Items(), 3)
	require.Equal(t, "150", c.Totals().Subtotal.String())
}
