// Package cart implements the shopping cart state machine and its store.
// Every mutation recomputes the derived totals through the pricing policy;
// totals are never stored independently of the items that produced them.
package cart

import (
	"github.com/oakline/storefront/internal/catalog"
	"github.com/oakline/storefront/internal/pricing"
)

// ProductInfo is the denormalized product data captured at add time. It is
// kept on the line item so the order can still be displayed and priced if
// the catalog cannot resolve the product later.
type ProductInfo struct {
	Name   string   `json:"name"`
	Images []string `json:"images,omitempty"`
}

// LineItem is a cart entry. A (productId, variantId) pair is the identity
// key; at most one line item exists per key.
type LineItem struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	Quantity  int             `json:"quantity"`
	Product   ProductInfo     `json:"product"`
	Variant   catalog.Variant `json:"variant"`
}

// Snapshot is the persisted form of a cart. The payment method is
// deliberately excluded: it resets to the default on restore.
type Snapshot struct {
	Items []LineItem `json:"items"`
}

// Cart holds the mutable cart state. Access is serialised by the owning
// Store; Cart itself is not safe for concurrent use.
type Cart struct {
	ID         string
	items      []LineItem
	method     pricing.PaymentMethod
	totals     pricing.Totals
	shouldOpen bool
	policy     pricing.Policy
}

func newCart(id string, policy pricing.Policy) *Cart {
	c := &Cart{ID: id, method: pricing.DefaultMethod, policy: policy}
	c.recompute()
	return c
}

func (c *Cart) find(productID, variantID string) int {
	for i, it := range c.items {
		if it.ProductID == productID && it.VariantID == variantID {
			return i
		}
	}
	return -1
}

func clampQuantity(qty int, v catalog.Variant) int {
	if qty < v.MinOrder {
		qty = v.MinOrder
	}
	if qty > v.MaxOrder {
		qty = v.MaxOrder
	}
	return qty
}

// AddItem upserts a line item. An existing line has its quantity increased
// by qty, clamped to the variant's maximum; a new line starts clamped to
// both order bounds. Adding marks the cart as wanting to open in the UI.
func (c *Cart) AddItem(productID string, product ProductInfo, variant catalog.Variant, qty int) {
	if qty <= 0 {
		qty = 1
	}
	if i := c.find(productID, variant.ID); i >= 0 {
		next := c.items[i].Quantity + qty
		if next > c.items[i].Variant.MaxOrder {
			next = c.items[i].Variant.MaxOrder
		}
		c.items[i].Quantity = next
	} else {
		c.items = append(c.items, LineItem{
			ProductID: productID,
			VariantID: variant.ID,
			Quantity:  clampQuantity(qty, variant),
			Product:   product,
			Variant:   variant,
		})
	}
	c.shouldOpen = true
	c.recompute()
}

// UpdateQuantity sets the quantity for an existing line item, clamped to
// the variant's order bounds. A quantity of zero or less removes the line.
// Unknown keys are a no-op.
func (c *Cart) UpdateQuantity(productID, variantID string, qty int) {
	if qty <= 0 {
		c.RemoveItem(productID, variantID)
		return
	}
	i := c.find(productID, variantID)
	if i < 0 {
		return
	}
	c.items[i].Quantity = clampQuantity(qty, c.items[i].Variant)
	c.recompute()
}

// RemoveItem deletes the line item for the key if present; otherwise it is
// a no-op.
func (c *Cart) RemoveItem(productID, variantID string) {
	i := c.find(productID, variantID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.recompute()
}

// Clear empties the cart and resets the payment method to the default.
func (c *Cart) Clear() {
	c.items = nil
	c.method = pricing.DefaultMethod
	c.shouldOpen = false
	c.recompute()
}

// SetPaymentMethod switches the selected method and recomputes the
// discount-dependent totals without touching the items.
func (c *Cart) SetPaymentMethod(method pricing.PaymentMethod) {
	c.method = method
	c.recompute()
}

func (c *Cart) recompute() {
	items := make([]pricing.Item, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, pricing.Item{Qty: it.Quantity, UnitPrice: it.Variant.Price})
	}
	c.totals = pricing.Compute(items, c.method, c.policy)
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Method returns the selected payment method.
func (c *Cart) Method() pricing.PaymentMethod { return c.method }

// Totals returns the current derived totals.
func (c *Cart) Totals() pricing.Totals { return c.totals }

// Snapshot captures the persistable cart state.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{Items: c.Items()}
}

// restore rebuilds the item collection by replaying the snapshot through
// AddItem under the default payment method, then clears the open hint a
// fresh page load should not trigger.
func (c *Cart) restore(snap Snapshot) {
	for _, it := range snap.Items {
		c.AddItem(it.ProductID, it.Product, it.Variant, it.Quantity)
	}
	c.shouldOpen = false
}
