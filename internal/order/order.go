// Package order implements the order-creation boundary: it receives a
// finalized cart snapshot plus customer data, reprices it against the
// catalog and emails the resulting order. Orders are not stored in a
// database in this design.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oakline/storefront/internal/pricing"
)

// Address is the shipping address collected at checkout.
type Address struct {
	Street    string `json:"street"`
	Apartment string `json:"apartment,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// Customer identifies the buyer.
type Customer struct {
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     string  `json:"phone"`
	Address   Address `json:"address"`
}

// PaymentDetails carries method-specific detail.
type PaymentDetails struct {
	CryptoCurrency string `json:"cryptoCurrency,omitempty"`
}

// LineProduct is the denormalized product data on an incoming line.
type LineProduct struct {
	Name string `json:"name"`
}

// LineVariant is the denormalized variant data on an incoming line. Its
// price is only trusted when the catalog cannot resolve the variant.
type LineVariant struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// LineInput is one cart line as submitted by the client.
type LineInput struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Product   LineProduct     `json:"product"`
	Variant   LineVariant     `json:"variant"`
}

// Request is the full order request handed to the boundary.
type Request struct {
	Customer       Customer              `json:"customer"`
	Items          []LineInput           `json:"items"`
	PaymentMethod  pricing.PaymentMethod `json:"paymentMethod"`
	PaymentDetails PaymentDetails        `json:"paymentDetails"`
	Note           string                `json:"note,omitempty"`
}

// PricedVia records which price source was used for a line.
type PricedVia string

const (
	// PricedViaCatalog means the authoritative catalog price was used.
	PricedViaCatalog PricedVia = "catalog"
	// PricedViaFallback means the client-supplied denormalized price was
	// used because the catalog lookup failed. Such orders are flagged for
	// manual review.
	PricedViaFallback PricedVia = "fallback"
)

// Line is a repriced order line.
type Line struct {
	ProductID   string          `json:"productId"`
	VariantID   string          `json:"variantId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ProductName string          `json:"productName"`
	VariantName string          `json:"variantName"`
	PricedVia   PricedVia       `json:"pricedVia"`
}

// Order is the finalized order record.
type Order struct {
	Number         string                `json:"number"`
	Customer       Customer              `json:"customer"`
	Items          []Line                `json:"items"`
	PaymentMethod  pricing.PaymentMethod `json:"paymentMethod"`
	PaymentDetails PaymentDetails        `json:"paymentDetails"`
	Note           string                `json:"note,omitempty"`
	Totals         pricing.Totals        `json:"-"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// HasFallbackPricing reports whether any line was priced from client data.
func (o Order) HasFallbackPricing() bool {
	for _, line := range o.Items {
		if line.PricedVia == PricedViaFallback {
			return true
		}
	}
	return false
}
