package order

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

func quantity(q int) decimal.Decimal {
	return decimal.NewFromInt(int64(q))
}

// renderOrderEmail produces the HTML body shared by the store copy and the
// customer confirmation.
func renderOrderEmail(o Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Order %s</h2>", html.EscapeString(o.Number))
	fmt.Fprintf(&b, "<p>%s %s &lt;%s&gt;<br>%s</p>",
		html.EscapeString(o.Customer.FirstName),
		html.EscapeString(o.Customer.LastName),
		html.EscapeString(o.Customer.Email),
		html.EscapeString(o.Customer.Phone),
	)
	addr := o.Customer.Address
	fmt.Fprintf(&b, "<p>%s", html.EscapeString(addr.Street))
	if addr.Apartment != "" {
		fmt.Fprintf(&b, ", %s", html.EscapeString(addr.Apartment))
	}
	fmt.Fprintf(&b, "<br>%s, %s %s<br>%s</p>",
		html.EscapeString(addr.City),
		html.EscapeString(addr.State),
		html.EscapeString(addr.ZipCode),
		html.EscapeString(addr.Country),
	)

	b.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>Product</th><th>Variant</th><th>Qty</th><th>Unit price</th><th>Line total</th></tr>")
	for _, line := range o.Items {
		lineTotal := line.UnitPrice.Mul(quantity(line.Quantity))
		name := html.EscapeString(line.ProductName)
		if line.PricedVia == PricedViaFallback {
			name += " (fallback priced)"
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			name,
			html.EscapeString(line.VariantName),
			line.Quantity,
			line.UnitPrice.StringFixed(2),
			lineTotal.StringFixed(2),
		)
	}
	b.WriteString("</table>")

	fmt.Fprintf(&b, "<p>Subtotal: %s<br>Discount: %s<br>Shipping: %s<br>Tax: %s<br><strong>Total: %s</strong></p>",
		o.Totals.Subtotal.StringFixed(2),
		o.Totals.Discount.StringFixed(2),
		o.Totals.Shipping.StringFixed(2),
		o.Totals.Tax.StringFixed(2),
		o.Totals.Total.StringFixed(2),
	)
	fmt.Fprintf(&b, "<p>Payment method: %s", html.EscapeString(string(o.PaymentMethod)))
	if o.PaymentDetails.CryptoCurrency != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(o.PaymentDetails.CryptoCurrency))
	}
	b.WriteString("</p>")
	if o.Note != "" {
		fmt.Fprintf(&b, "<p>Note: %s</p>", html.EscapeString(o.Note))
	}
	if o.HasFallbackPricing() {
		b.WriteString("<p><strong>One or more lines were priced from client data; review before fulfilment.</strong></p>")
	}
	return b.String()
}
