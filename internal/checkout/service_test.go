package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oakline/storefront/internal/cart"
	"github.com/oakline/storefront/internal/catalog"
	"github.com/oakline/storefront/internal/common"
	"github.com/oakline/storefront/internal/events"
	"github.com/oakline/storefront/internal/lock"
	"github.com/oakline/storefront/internal/obs"
	"github.com/oakline/storefront/internal/order"
	"github.com/oakline/storefront/internal/pricing"
)

func init() {
	obs.MustRegisterDomainMetrics("storefront_test", prometheus.NewRegistry())
}

func testPolicy() pricing.Policy {
	return pricing.Policy{
		CryptoDiscountPercent:  decimal.NewFromInt(10),
		RevolutDiscountPercent: decimal.NewFromInt(5),
		FreeShippingThreshold:  decimal.NewFromInt(100),
		StandardShippingRate:   decimal.NewFromInt(10),
		TaxRate:                decimal.NewFromFloat(0.08),
		MinimumOrderAmount:     decimal.NewFromInt(100),
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Product{{
		ID:   "p1",
		Name: "Loose Leaf",
		Variants: []catalog.Variant{
			{ID: "v1", Name: "50g", Price: decimal.NewFromInt(50), MinOrder: 1, MaxOrder: 10, InStock: true},
		},
	}})
	require.NoError(t, err)
	return c
}

type fixture struct {
	svc    *Service
	carts  *cart.Store
	mail   *common.InMemoryEmail
	cartID string
}

// newFixture builds a checkout service over an in-memory cart store with one
// cart holding qty line items of the 50-unit variant.
func newFixture(t *testing.T, qty int) *fixture {
	t.Helper()
	cat := testCatalog(t)
	carts := cart.NewStore(cart.NewMemoryStorage(), testPolicy(), zerolog.Nop())
	mail := &common.InMemoryEmail{}
	id := carts.Create(context.Background())
	if qty > 0 {
		_, variant, err := cat.Variant("p1", "v1")
		require.NoError(t, err)
		_, ok := carts.AddItem(context.Background(), id, "p1", cart.ProductInfo{Name: "Loose Leaf"}, variant, qty)
		require.True(t, ok)
	}
	return &fixture{
		svc: &Service{
			Carts: carts,
			Orders: &order.Service{
				Catalog: cat,
				Policy:  testPolicy(),
				Mail:    mail,
				Inbox:   "orders@example.com",
				Log:     zerolog.Nop(),
			},
			Validate: NewValidator(),
			Log:      zerolog.Nop(),
		},
		carts:  carts,
		mail:   mail,
		cartID: id,
	}
}

func validInput(cartID string) Input {
	return Input{
		CartID: cartID,
		Customer: CustomerInput{
			Email:     "buyer@example.com",
			FirstName: "Ada",
			LastName:  "Byron",
			Phone:     "+4915112345678",
			Address: AddressInput{
				Street:  "1 Main St",
				City:    "Berlin",
				State:   "BE",
				ZipCode: "10115",
				Country: "DE",
			},
		},
		PaymentMethod: "card",
		AgeConfirmed:  true,
	}
}

func TestSubmitAcceptsAndClearsCart(t *testing.T) {
	f := newFixture(t, 3)

	o, err := f.svc.Submit(context.Background(), validInput(f.cartID))
	require.NoError(t, err)
	require.Equal(t, "162", o.Totals.Total.String())
	require.Len(t, f.mail.Outbox, 2)

	view, ok := f.carts.View(context.Background(), f.cartID)
	require.True(t, ok)
	require.Empty(t, view.Items)
}

func TestSubmitRejectsInvalidFields(t *testing.T) {
	f := newFixture(t, 3)

	in := validInput(f.cartID)
	in.Customer.Email = "not-an-email"
	in.Customer.Phone = "12345"
	in.AgeConfirmed = false

	_, err := f.svc.Submit(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "customer.email")
	require.Contains(t, verr.Fields, "customer.phone")
	require.Contains(t, verr.Fields, "ageConfirmed")
	require.Empty(t, f.mail.Outbox)
}

func TestSubmitRejectsUnsupportedMethod(t *testing.T) {
	f := newFixture(t, 3)
	in := validInput(f.cartID)
	in.PaymentMethod = "barter"

	_, err := f.svc.Submit(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "paymentMethod")
}

func TestSubmitRequiresCryptoCurrencyForCrypto(t *testing.T) {
	f := newFixture(t, 3)
	in := validInput(f.cartID)
	in.PaymentMethod = "crypto"

	_, err := f.svc.Submit(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "paymentDetails.cryptoCurrency")

	in.PaymentDetails.CryptoCurrency = "BTC"
	o, err := f.svc.Submit(context.Background(), in)
	require.NoError(t, err)
	// 10% crypto discount on 150, free shipping, 8% tax.
	require.Equal(t, "145.8", o.Totals.Total.String())
}

func TestSubmitUnknownCart(t *testing.T) {
	f := newFixture(t, 3)
	_, err := f.svc.Submit(context.Background(), validInput("no-such-cart"))
	require.ErrorIs(t, err, ErrCartNotFound)
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.Submit(context.Background(), validInput(f.cartID))
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitBelowMinimum(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.Submit(context.Background(), validInput(f.cartID))
	var merr *MinimumNotMetError
	require.ErrorAs(t, err, &merr)
	require.Equal(t, "50.00", merr.AmountRemaining.StringFixed(2))
	require.Equal(t, "100.00", merr.Required.StringFixed(2))
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return nil
}

func TestSubmitEmitsOrderAndCartEvents(t *testing.T) {
	f := newFixture(t, 3)
	captured := &captureNotifier{}
	f.svc.Orders.Bus = &events.Bus{Notifiers: []events.Notifier{captured}}

	o, err := f.svc.Submit(context.Background(), validInput(f.cartID))
	require.NoError(t, err)
	require.Len(t, captured.events, 2)
	require.Equal(t, events.TopicOrderCreated, captured.events[0].Topic)
	require.Equal(t, events.TopicCartCleared, captured.events[1].Topic)
	require.Equal(t, f.cartID, captured.events[1].AggregateID)
	require.Equal(t, o.Number, captured.events[1].Payload["orderNumber"])
}

func TestSubmitWithCartLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, 3)
	f.svc.Lock = &lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}

	o, err := f.svc.Submit(context.Background(), validInput(f.cartID))
	require.NoError(t, err)
	require.NotEmpty(t, o.Number)

	// The lock is released after the submission completes.
	require.False(t, mr.Exists(lock.CartKey(f.cartID)))
}

type failingMail struct{}

func (failingMail) Send(string, string, string) error { return errors.New("smtp down") }

func TestSubmitKeepsCartWhenOrderFails(t *testing.T) {
	f := newFixture(t, 3)
	f.svc.Orders.Mail = failingMail{}

	_, err := f.svc.Submit(context.Background(), validInput(f.cartID))
	require.Error(t, err)

	items, _, _, ok := f.carts.State(context.Background(), f.cartID)
	require.True(t, ok)
	require.Len(t, items, 1)
}
