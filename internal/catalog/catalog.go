// Package catalog provides the read-only product source. Products are loaded
// once from a JSON seed file; the storefront treats the catalog as an
// external collaborator and never mutates it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the product or variant could not be resolved.
var ErrNotFound = errors.New("catalog: not found")

// Variant is a purchasable variation of a product.
type Variant struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty"`
	MinOrder       int              `json:"minOrder"`
	MaxOrder       int              `json:"maxOrder"`
	IsWholesale    bool             `json:"isWholesale"`
	InStock        bool             `json:"inStock"`
	ImageID        string           `json:"imageId,omitempty"`
}

// Product groups variants under a single catalog entry.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Images   []string  `json:"images,omitempty"`
	Variants []Variant `json:"variants"`
}

// Catalog is an immutable in-memory product index.
type Catalog struct {
	products map[string]Product
	order    []string
}

// New builds a catalog from the provided products. Variant order bounds are
// normalised so MinOrder is at least 1 and MaxOrder at least MinOrder.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("catalog: product %q has no id", p.Name)
		}
		if _, exists := c.products[p.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		seen := make(map[string]struct{}, len(p.Variants))
		for i, v := range p.Variants {
			if strings.TrimSpace(v.ID) == "" {
				return nil, fmt.Errorf("catalog: product %q variant %d has no id", p.ID, i)
			}
			if _, dup := seen[v.ID]; dup {
				return nil, fmt.Errorf("catalog: product %q has duplicate variant id %q", p.ID, v.ID)
			}
			seen[v.ID] = struct{}{}
			if v.MinOrder < 1 {
				v.MinOrder = 1
			}
			if v.MaxOrder < v.MinOrder {
				v.MaxOrder = v.MinOrder
			}
			p.Variants[i] = v
		}
		c.products[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Load reads a JSON seed file containing an array of products.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read seed: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("catalog: decode seed: %w", err)
	}
	return New(products)
}

// Products returns all products in seed order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Variant resolves a (productID, variantID) pair to its product and variant.
func (c *Catalog) Variant(productID, variantID string) (Product, Variant, error) {
	p, ok := c.products[productID]
	if !ok {
		return Product{}, Variant{}, fmt.Errorf("product %q: %w", productID, ErrNotFound)
	}
	for _, v := range p.Variants {
		if v.ID == variantID {
			return p, v, nil
		}
	}
	return Product{}, Variant{}, fmt.Errorf("variant %q of product %q: %w", variantID, productID, ErrNotFound)
}
