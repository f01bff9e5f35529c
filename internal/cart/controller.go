package cart

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/domain"
)

// API is the slice of the backend client the cart controller needs.
type API interface {
	GetCart(ctx context.Context, creds backend.Credentials) (*domain.Cart, error)
	AddItem(ctx context.Context, creds backend.Credentials, templateID string, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, creds backend.Credentials, templateID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, creds backend.Credentials, templateID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, creds backend.Credentials) error
}

// ErrMutationInFlight is returned when a second mutation is attempted while
// one is still running. Mutations are strictly serialized per controller so
// out-of-order responses cannot overwrite newer local intent.
var ErrMutationInFlight = errors.New("another cart update is in progress")

// CheckoutRoute is where ProceedToCheckout points; the checkout view
// re-fetches the cart itself, so no network call happens here.
const CheckoutRoute = "/checkout"

// Controller presents the authoritative cart for one identity and mutates
// it through backend calls, one in-flight mutation at a time. The held cart
// is always the last server response in full, never a local patch; on any
// failure it stays untouched (last-known-good).
type Controller struct {
	api      API
	store    *Store
	identity string
	log      logrus.FieldLogger

	busy sync.Mutex // mutation gate, TryLock fails fast
	mu   sync.RWMutex
	cart *domain.Cart
}

func NewController(api API, store *Store, identity string, log logrus.FieldLogger) *Controller {
	return &Controller{
		api:      api,
		store:    store,
		identity: identity,
		log:      log.WithField("identity", identity),
	}
}

// Load fetches the cart. An absent or empty cart is a valid state, distinct
// from a fetch failure; on failure the last-known-good cart stays held.
func (c *Controller) Load(ctx context.Context, creds backend.Credentials) (*domain.Cart, error) {
	fetched, err := c.api.GetCart(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	c.replace(ctx, fetched)
	return fetched.Clone(), nil
}

// Cart returns a snapshot of the last-known-good cart, or nil before the
// first successful Load.
func (c *Controller) Cart() *domain.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Clone()
}

// AddItem adds a template to the cart.
func (c *Controller) AddItem(ctx context.Context, creds backend.Credentials, templateID string, quantity int) (*domain.Cart, error) {
	if !c.busy.TryLock() {
		return nil, ErrMutationInFlight
	}
	defer c.busy.Unlock()

	updated, err := c.api.AddItem(ctx, creds, templateID, quantity)
	if err != nil {
		return nil, errors.Wrap(err, "add to cart")
	}
	c.replace(ctx, updated)
	return updated.Clone(), nil
}

// SetQuantity sets an item's quantity. A quantity of zero or less removes
// the item, so both paths converge on the same resulting cart state.
func (c *Controller) SetQuantity(ctx context.Context, creds backend.Credentials, templateID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return c.Remove(ctx, creds, templateID)
	}
	if !c.busy.TryLock() {
		return nil, ErrMutationInFlight
	}
	defer c.busy.Unlock()

	updated, err := c.api.UpdateItem(ctx, creds, templateID, quantity)
	if err != nil {
		return nil, errors.Wrap(err, "update quantity")
	}
	c.replace(ctx, updated)
	return updated.Clone(), nil
}

// Remove deletes one item from the cart.
func (c *Controller) Remove(ctx context.Context, creds backend.Credentials, templateID string) (*domain.Cart, error) {
	if !c.busy.TryLock() {
		return nil, ErrMutationInFlight
	}
	defer c.busy.Unlock()

	updated, err := c.api.RemoveItem(ctx, creds, templateID)
	if err != nil {
		return nil, errors.Wrap(err, "remove from cart")
	}
	c.replace(ctx, updated)
	return updated.Clone(), nil
}

// Clear empties the cart. The backend returns a confirmation only, so the
// local view becomes an empty cart and the badge drops to zero.
func (c *Controller) Clear(ctx context.Context, creds backend.Credentials) (*domain.Cart, error) {
	if !c.busy.TryLock() {
		return nil, ErrMutationInFlight
	}
	defer c.busy.Unlock()

	if err := c.api.ClearCart(ctx, creds); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	empty := &domain.Cart{}
	c.mu.Lock()
	if c.cart != nil {
		empty.ID = c.cart.ID
		empty.OwnerID = c.cart.OwnerID
	}
	c.cart = empty
	c.mu.Unlock()
	c.store.Publish(ctx, c.identity, 0)
	return empty.Clone(), nil
}

// ProceedToCheckout is pure navigation; the checkout view re-fetches the
// authoritative cart on entry.
func (c *Controller) ProceedToCheckout() string {
	return CheckoutRoute
}

// replace swaps the held cart for the server's response and publishes the
// exact count the server reported.
func (c *Controller) replace(ctx context.Context, cart *domain.Cart) {
	c.mu.Lock()
	c.cart = cart.Clone()
	c.mu.Unlock()
	c.store.Publish(ctx, c.identity, cart.Count())
}
