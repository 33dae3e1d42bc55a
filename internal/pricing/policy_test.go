package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{
		CryptoDiscountPercent:  decimal.NewFromInt(10),
		RevolutDiscountPercent: decimal.NewFromInt(5),
		FreeShippingThreshold:  decimal.NewFromInt(100),
		StandardShippingRate:   decimal.NewFromInt(10),
		TaxRate:                decimal.NewFromFloat(0.08),
		MinimumOrderAmount:     decimal.NewFromInt(500),
	}
}

func requireEq(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, actual.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s", expected, actual.String())
}

func TestComputeEmptyCart(t *testing.T) {
	totals := Compute(nil, MethodCard, testPolicy())
	requireEq(t, "0", totals.Subtotal)
	requireEq(t, "0", totals.Discount)
	requireEq(t, "0", totals.Shipping)
	requireEq(t, "0", totals.Tax)
	requireEq(t, "0", totals.Total)
}

func TestComputeCardAtFreeShippingThreshold(t *testing.T) {
	items := []Item{{Qty: 3, UnitPrice: decimal.NewFromInt(50)}}
	totals := Compute(items, MethodCard, testPolicy())
	requireEq(t, "150", totals.Subtotal)
	requireEq(t, "0", totals.Discount)
	requireEq(t, "0", totals.Shipping)
	requireEq(t, "12", totals.Tax)
	requireEq(t, "162", totals.Total)
}

func TestComputeCryptoDiscount(t *testing.T) {
	items := []Item{{Qty: 3, UnitPrice: decimal.NewFromInt(50)}}
	totals := Compute(items, MethodCrypto, testPolicy())
	requireEq(t, "150", totals.Subtotal)
	requireEq(t, "15", totals.Discount)
	requireEq(t, "0", totals.Shipping)
	requireEq(t, "10.8", totals.Tax)
	requireEq(t, "145.8", totals.Total)
}

func TestComputeStandardShippingBelowThreshold(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: decimal.NewFromInt(80)}}
	totals := Compute(items, MethodCard, testPolicy())
	requireEq(t, "80", totals.Subtotal)
	requireEq(t, "10", totals.Shipping)
}

func TestComputeDiscountOnlyForCryptoAndRevolut(t *testing.T) {
	items := []Item{{Qty: 2, UnitPrice: decimal.NewFromInt(25)}}
	for _, method := range []PaymentMethod{MethodCard, MethodBankTransfer, MethodApplePay, MethodOther} {
		totals := Compute(items, method, testPolicy())
		require.True(t, totals.Discount.IsZero(), "method %s should carry no discount", method)
	}
	require.True(t, Compute(items, MethodCrypto, testPolicy()).Discount.IsPositive())
	require.True(t, Compute(items, MethodRevolut, testPolicy()).Discount.IsPositive())
}

func TestComputeTotalIdentity(t *testing.T) {
	carts := [][]Item{
		{},
		{{Qty: 1, UnitPrice: decimal.NewFromFloat(19.99)}},
		{{Qty: 3, UnitPrice: decimal.NewFromInt(50)}, {Qty: 2, UnitPrice: decimal.NewFromFloat(7.45)}},
		{{Qty: 10, UnitPrice: decimal.NewFromFloat(123.456)}},
	}
	methods := []PaymentMethod{MethodCard, MethodCrypto, MethodRevolut, MethodBankTransfer, MethodApplePay, MethodOther}
	for _, items := range carts {
		for _, method := range methods {
			totals := Compute(items, method, testPolicy())
			taxable := totals.Subtotal.Sub(totals.Discount)
			if taxable.IsNegative() {
				taxable = decimal.Zero
			}
			want := taxable.Add(totals.Shipping).Add(totals.Tax)
			require.True(t, totals.Total.Equal(want),
				"total drift for method %s: total=%s want=%s", method, totals.Total, want)
		}
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	items := []Item{{Qty: 4, UnitPrice: decimal.NewFromFloat(12.5)}}
	first := Compute(items, MethodRevolut, testPolicy())
	second := Compute(items, MethodRevolut, testPolicy())
	require.True(t, first.Total.Equal(second.Total))
	require.True(t, first.Discount.Equal(second.Discount))
	require.True(t, first.Tax.Equal(second.Tax))
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod(" Crypto ")
	require.True(t, ok)
	require.Equal(t, MethodCrypto, m)

	_, ok = ParseMethod("wire")
	require.False(t, ok)
}
