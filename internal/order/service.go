package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oakline/storefront/internal/catalog"
	"github.com/oakline/storefront/internal/common"
	"github.com/oakline/storefront/internal/events"
	"github.com/oakline/storefront/internal/obs"
	"github.com/oakline/storefront/internal/pricing"
)

// ErrEmptyOrder is returned when the request carries no line items.
var ErrEmptyOrder = errors.New("order: no items")

// Service is the order-creation boundary.
type Service struct {
	Catalog *catalog.Catalog
	Policy  pricing.Policy
	Mail    common.EmailSender
	From    string
	// Inbox is the store-side address order emails are delivered to.
	Inbox string
	Bus   *events.Bus
	Log   zerolog.Logger
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create reprices the request against the catalog, builds the order record
// and emails it out. Client-supplied prices are only used when the catalog
// cannot resolve a line; those lines are marked and logged for review.
func (s *Service) Create(ctx context.Context, req Request) (Order, error) {
	if s == nil || s.Mail == nil {
		return Order{}, errors.New("order: service not configured")
	}
	if len(req.Items) == 0 {
		return Order{}, ErrEmptyOrder
	}

	lines := make([]Line, 0, len(req.Items))
	pricingItems := make([]pricing.Item, 0, len(req.Items))
	for _, in := range req.Items {
		if in.Quantity <= 0 {
			return Order{}, fmt.Errorf("order: line %s/%s has non-positive quantity", in.ProductID, in.VariantID)
		}
		line := Line{
			ProductID:   in.ProductID,
			VariantID:   in.VariantID,
			Quantity:    in.Quantity,
			ProductName: in.Product.Name,
			VariantName: in.Variant.Name,
		}
		if s.Catalog != nil {
			if product, variant, err := s.Catalog.Variant(in.ProductID, in.VariantID); err == nil {
				line.UnitPrice = variant.Price
				line.ProductName = product.Name
				line.VariantName = variant.Name
				line.PricedVia = PricedViaCatalog
			}
		}
		if line.PricedVia != PricedViaCatalog {
			line.UnitPrice = in.Variant.Price
			line.PricedVia = PricedViaFallback
			obs.FallbackPricedLinesTotal.Inc()
			s.Log.Warn().
				Str("product_id", in.ProductID).
				Str("variant_id", in.VariantID).
				Str("client_price", in.Variant.Price.StringFixed(2)).
				Msg("order line priced from client data, flag for review")
		}
		lines = append(lines, line)
		pricingItems = append(pricingItems, pricing.Item{Qty: line.Quantity, UnitPrice: line.UnitPrice})
	}

	method := req.PaymentMethod
	if _, ok := pricing.ParseMethod(string(method)); !ok {
		method = pricing.DefaultMethod
	}
	totals := pricing.Compute(pricingItems, method, s.Policy)

	o := Order{
		Number:         generateOrderNumber(),
		Customer:       req.Customer,
		Items:          lines,
		PaymentMethod:  method,
		PaymentDetails: req.PaymentDetails,
		Note:           req.Note,
		Totals:         totals,
		CreatedAt:      s.now(),
	}

	subject := fmt.Sprintf("Order %s", o.Number)
	body := renderOrderEmail(o)
	if err := s.Mail.Send(s.Inbox, subject, body); err != nil {
		return Order{}, fmt.Errorf("order: send order email: %w", err)
	}
	if to := strings.TrimSpace(o.Customer.Email); to != "" {
		if err := s.Mail.Send(to, fmt.Sprintf("Order confirmation %s", o.Number), body); err != nil {
			// The order already reached the store inbox; a failed
			// confirmation is logged, not fatal.
			s.Log.Warn().Err(err).Str("order_number", o.Number).Msg("send confirmation email")
		}
	}

	if s.Bus != nil {
		payload := map[string]any{
			"orderNumber":     o.Number,
			"email":           o.Customer.Email,
			"total":           totals.Total.StringFixed(2),
			"paymentMethod":   string(method),
			"fallbackPricing": o.HasFallbackPricing(),
		}
		if _, err := s.Bus.Emit(ctx, events.TopicOrderCreated, o.Number, payload); err != nil {
			s.Log.Warn().Err(err).Str("order_number", o.Number).Msg("emit order event")
		}
	}

	return o, nil
}

func generateOrderNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "SF-" + raw[:10]
}
