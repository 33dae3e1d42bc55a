package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oakline/storefront/internal/catalog"
	"github.com/oakline/storefront/internal/pricing"
)

// Store owns the live carts and their persistence. It is constructed
// explicitly and injected into consumers; there is no package-level cart
// state. All operations are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	carts   map[string]*Cart
	storage Storage
	policy  pricing.Policy
	log     zerolog.Logger
}

// NewStore constructs a cart store backed by the given storage.
func NewStore(storage Storage, policy pricing.Policy, log zerolog.Logger) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Store{
		carts:   make(map[string]*Cart),
		storage: storage,
		policy:  policy,
		log:     log,
	}
}

// Create starts a new empty cart and returns its id.
func (s *Store) Create(_ context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.carts[id] = newCart(id, s.policy)
	return id
}

// get resolves a live cart, rehydrating it from storage when this process
// has not seen the id yet. Callers must hold s.mu.
func (s *Store) get(ctx context.Context, id string) (*Cart, bool) {
	if c, ok := s.carts[id]; ok {
		return c, true
	}
	snap, found, err := s.storage.Load(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("cart_id", id).Msg("load cart snapshot")
		return nil, false
	}
	if !found {
		return nil, false
	}
	c := newCart(id, s.policy)
	c.restore(snap)
	s.carts[id] = c
	return c, true
}

// persist writes the snapshot after an item-collection change. Storage
// failures are logged and swallowed: the cart keeps working in memory for
// the rest of the session.
func (s *Store) persist(ctx context.Context, c *Cart) {
	if err := s.storage.Save(ctx, c.ID, c.Snapshot()); err != nil {
		s.log.Warn().Err(err).Str("cart_id", c.ID).Msg("persist cart snapshot")
	}
}

// AddItem upserts a line item on the cart. It reports false when the cart
// id is unknown.
func (s *Store) AddItem(ctx context.Context, id, productID string, product ProductInfo, variant catalog.Variant, qty int) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.get(ctx, id)
	if !ok {
		return View{}, false
	}
	c.AddItem(productID, product, variant, qty)
	s.persist(ctx, c)
	return s.view(c), true
}

// UpdateQuantity sets a line quantity; zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, id, productID, variantID string, qty int) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.get(ctx, id)
	if !ok {
		return View{}, false
	}
	c.UpdateQuantity(productID, variantID, qty)
	s.persist(ctx, c)
	return s.view(c), true
}

// RemoveItem deletes a line item; removing an absent key is a no-op, not an
// error.
func (s *Store) RemoveItem(ctx context.Context, id, productID, variantID string) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.get(ctx, id)
	if !ok {
		return View{}, false
	}
	c.RemoveItem(productID, variantID)
	s.persist(ctx, c)
	return s.view(c), true
}

// Clear empties the cart and drops its persisted snapshot.
func (s *Store) Clear(ctx context.Context, id string) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.get(ctx, id)
	if !ok {
		return View{}, false
	}
	c.Clear()
	if err := s.storage.Delete(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("cart_id", id).Msg("delete cart snapshot")
	}
	return s.view(c), true
}

// SetPaymentMethod selects the payment method. The choice is not persisted;
// a restored cart always starts on the default method.
func (s *Store) SetPaymentMethod(ctx context.Context, id string, method pricing.PaymentMethod) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.get(ctx, id)
	if !ok {
		return View{}, false
	}
	c.SetPaymentMethod(method)
	return s.view(c), true
}

// View renders the cart without mutating it.
func (s *Store) View(ctx context.Context, id string) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.get(ctx, id)
	if !ok {
		return View{}, false
	}
	return s.view(c), true
}

// State exposes the raw cart state for checkout packaging.
func (s *Store) State(ctx context.Context, id string) ([]LineItem, pricing.PaymentMethod, pricing.Totals, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.get(ctx, id)
	if !ok {
		return nil, "", pricing.Totals{}, false
	}
	return c.Items(), c.Method(), c.Totals(), true
}

// Policy returns the pricing policy the store computes with.
func (s *Store) Policy() pricing.Policy { return s.policy }
