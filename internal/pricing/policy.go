package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how the customer intends to pay. The selected
// method drives the discount component of the totals.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodCrypto       PaymentMethod = "crypto"
	MethodRevolut      PaymentMethod = "revolut"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodApplePay     PaymentMethod = "apple_pay"
	MethodOther        PaymentMethod = "other"
)

// DefaultMethod is the method every new or restored cart starts with.
const DefaultMethod = MethodCard

// ParseMethod normalises a raw method string. It reports whether the value
// is one of the supported methods.
func ParseMethod(raw string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MethodCard, MethodCrypto, MethodRevolut, MethodBankTransfer, MethodApplePay, MethodOther:
		return m, true
	}
	return "", false
}

// Policy holds the site-wide pricing constants. Percent values are expressed
// as 0-100, the tax rate as a fraction (0.08 for 8%).
type Policy struct {
	CryptoDiscountPercent  decimal.Decimal
	RevolutDiscountPercent decimal.Decimal
	FreeShippingThreshold  decimal.Decimal
	StandardShippingRate   decimal.Decimal
	TaxRate                decimal.Decimal
	MinimumOrderAmount     decimal.Decimal
}

// DiscountPercent returns the discount percentage for the given method.
// Only crypto and revolut carry a nonzero rate.
func (p Policy) DiscountPercent(method PaymentMethod) decimal.Decimal {
	switch method {
	case MethodCrypto:
		return p.CryptoDiscountPercent
	case MethodRevolut:
		return p.RevolutDiscountPercent
	default:
		return decimal.Zero
	}
}

// Item is a line entering the totals computation.
type Item struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// Totals aggregates the five derived pricing components. Values keep full
// decimal precision; rounding to currency precision happens only when a
// value is rendered.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Compute derives totals from the item collection and the selected payment
// method. It is a pure function: an empty collection yields all zeros and
// no error. Negative unit prices are a catalog integrity concern and are
// not guarded against here.
func Compute(items []Item, method PaymentMethod, p Policy) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}

	discount := subtotal.Mul(p.DiscountPercent(method)).Div(hundred)

	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	shipping := decimal.Zero
	if subtotal.IsPositive() && subtotal.LessThan(p.FreeShippingThreshold) {
		shipping = p.StandardShippingRate
	}

	tax := taxable.Mul(p.TaxRate)
	total := taxable.Add(shipping).Add(tax)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    total,
	}
}
