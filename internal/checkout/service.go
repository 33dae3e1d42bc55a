package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oakline/storefront/internal/cart"
	"github.com/oakline/storefront/internal/events"
	"github.com/oakline/storefront/internal/lock"
	"github.com/oakline/storefront/internal/order"
	"github.com/oakline/storefront/internal/pricing"
)

var (
	// ErrCartNotFound is returned when the submitted cart id resolves to
	// nothing, in memory or in storage.
	ErrCartNotFound = errors.New("checkout: cart not found")
	// ErrEmptyCart is returned when the cart has no line items.
	ErrEmptyCart = errors.New("checkout: cart is empty")
)

// MinimumNotMetError rejects a submission whose pre-discount subtotal is
// below the configured minimum order amount.
type MinimumNotMetError struct {
	Required        decimal.Decimal
	AmountRemaining decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("checkout: minimum order amount %s not met, %s remaining",
		e.Required.StringFixed(2), e.AmountRemaining.StringFixed(2))
}

// Service validates checkout submissions, gates them on cart state and hands
// the packaged order to the order boundary. The cart is cleared only after
// the order is accepted.
type Service struct {
	Carts    *cart.Store
	Orders   *order.Service
	Validate *validator.Validate
	// Lock serializes submissions per cart across instances. Nil disables
	// locking, which is fine for single-instance and memory-only setups.
	Lock *lock.Locker
	Log  zerolog.Logger
}

const submitLockTTL = 30 * time.Second

// Submit runs one checkout attempt end to end.
func (s *Service) Submit(ctx context.Context, in Input) (order.Order, error) {
	if s == nil || s.Carts == nil || s.Orders == nil || s.Validate == nil {
		return order.Order{}, errors.New("checkout: service not configured")
	}
	if err := s.Validate.Struct(in); err != nil {
		return order.Order{}, &ValidationError{Fields: fieldErrors(err)}
	}
	method, ok := pricing.ParseMethod(in.PaymentMethod)
	if !ok {
		return order.Order{}, singleFieldError("paymentMethod", "is not a supported payment method")
	}
	if method == pricing.MethodCrypto && strings.TrimSpace(in.PaymentDetails.CryptoCurrency) == "" {
		return order.Order{}, singleFieldError("paymentDetails.cryptoCurrency", "is required for crypto payments")
	}

	if s.Lock != nil {
		var o order.Order
		err := s.Lock.WithLock(ctx, lock.CartKey(in.CartID), submitLockTTL, func(ctx context.Context) error {
			var err error
			o, err = s.submit(ctx, in, method)
			return err
		})
		return o, err
	}
	return s.submit(ctx, in, method)
}

func (s *Service) submit(ctx context.Context, in Input, method pricing.PaymentMethod) (order.Order, error) {
	items, _, totals, found := s.Carts.State(ctx, in.CartID)
	if !found {
		return order.Order{}, ErrCartNotFound
	}
	if len(items) == 0 {
		return order.Order{}, ErrEmptyCart
	}
	policy := s.Carts.Policy()
	if pricing.BelowMinimum(totals.Subtotal, policy.MinimumOrderAmount) {
		return order.Order{}, &MinimumNotMetError{
			Required:        policy.MinimumOrderAmount,
			AmountRemaining: pricing.AmountRemaining(totals.Subtotal, policy.MinimumOrderAmount),
		}
	}

	req := order.Request{
		Customer: order.Customer{
			Email:     in.Customer.Email,
			FirstName: in.Customer.FirstName,
			LastName:  in.Customer.LastName,
			Phone:     in.Customer.Phone,
			Address: order.Address{
				Street:    in.Customer.Address.Street,
				Apartment: in.Customer.Address.Apartment,
				City:      in.Customer.Address.City,
				State:     in.Customer.Address.State,
				ZipCode:   in.Customer.Address.ZipCode,
				Country:   in.Customer.Address.Country,
			},
		},
		Items:          packageItems(items),
		PaymentMethod:  method,
		PaymentDetails: order.PaymentDetails{CryptoCurrency: in.PaymentDetails.CryptoCurrency},
		Note:           in.Note,
	}

	o, err := s.Orders.Create(ctx, req)
	if err != nil {
		return order.Order{}, err
	}
	if _, cleared := s.Carts.Clear(ctx, in.CartID); !cleared {
		s.Log.Warn().Str("cart_id", in.CartID).Str("order_number", o.Number).Msg("clear cart after checkout")
	}
	if s.Orders.Bus != nil {
		payload := map[string]any{"reason": "checkout", "orderNumber": o.Number}
		if _, err := s.Orders.Bus.Emit(ctx, events.TopicCartCleared, in.CartID, payload); err != nil {
			s.Log.Warn().Err(err).Str("cart_id", in.CartID).Msg("emit cart cleared event")
		}
	}
	return o, nil
}

// packageItems converts live cart lines into the denormalized order wire
// shape, carrying the variant price along for fallback repricing.
func packageItems(items []cart.LineItem) []order.LineInput {
	out := make([]order.LineInput, 0, len(items))
	for _, it := range items {
		out = append(out, order.LineInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.Variant.Price,
			Product:   order.LineProduct{Name: it.Product.Name},
			Variant:   order.LineVariant{Name: it.Variant.Name, Price: it.Variant.Price},
		})
	}
	return out
}
