package cart

import (
	"github.com/shopspring/decimal"

	"github.com/oakline/storefront/internal/pricing"
)

func quantityDecimal(qty int) decimal.Decimal {
	return decimal.NewFromInt(int64(qty))
}

// ItemView is the rendered form of a line item.
type ItemView struct {
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId"`
	ProductName string `json:"productName"`
	VariantName string `json:"variantName"`
	UnitPrice   string `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"lineTotal"`
	IsWholesale bool   `json:"isWholesale"`
}

// TotalsView renders totals at currency precision. Rounding happens here,
// at the presentation boundary, never inside the pricing computation.
type TotalsView struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// MinimumOrderView reports progress toward the minimum order amount.
type MinimumOrderView struct {
	Required        string  `json:"required"`
	BelowMinimum    bool    `json:"belowMinimum"`
	AmountRemaining string  `json:"amountRemaining"`
	ProgressPercent float64 `json:"progressPercent"`
}

// View is the full cart representation returned to clients.
type View struct {
	ID            string           `json:"id"`
	Items         []ItemView       `json:"items"`
	PaymentMethod string           `json:"paymentMethod"`
	Totals        TotalsView       `json:"totals"`
	MinimumOrder  MinimumOrderView `json:"minimumOrder"`
	ShouldOpen    bool             `json:"shouldOpen"`
}

func (s *Store) view(c *Cart) View {
	items := make([]ItemView, 0, len(c.items))
	for _, it := range c.items {
		lineTotal := it.Variant.Price.Mul(quantityDecimal(it.Quantity))
		items = append(items, ItemView{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			ProductName: it.Product.Name,
			VariantName: it.Variant.Name,
			UnitPrice:   it.Variant.Price.StringFixed(2),
			Quantity:    it.Quantity,
			LineTotal:   lineTotal.StringFixed(2),
			IsWholesale: it.Variant.IsWholesale,
		})
	}
	minimum := s.policy.MinimumOrderAmount
	return View{
		ID:            c.ID,
		Items:         items,
		PaymentMethod: string(c.method),
		Totals: TotalsView{
			Subtotal: c.totals.Subtotal.StringFixed(2),
			Discount: c.totals.Discount.StringFixed(2),
			Shipping: c.totals.Shipping.StringFixed(2),
			Tax:      c.totals.Tax.StringFixed(2),
			Total:    c.totals.Total.StringFixed(2),
		},
		MinimumOrder: MinimumOrderView{
			Required:        minimum.StringFixed(2),
			BelowMinimum:    pricing.BelowMinimum(c.totals.Subtotal, minimum),
			AmountRemaining: pricing.AmountRemaining(c.totals.Subtotal, minimum).StringFixed(2),
			ProgressPercent: pricing.Progress(c.totals.Subtotal, minimum).Round(2).InexactFloat64(),
		},
		ShouldOpen: c.shouldOpen,
	}
}
