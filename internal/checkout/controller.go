package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/domain"
)

// API is the slice of the backend client the checkout controller needs.
type API interface {
	GetCart(ctx context.Context, creds backend.Credentials) (*domain.Cart, error)
	CreateCheckoutSession(ctx context.Context, creds backend.Credentials, items []domain.CartItem, idempotencyKey string) (*domain.CheckoutSession, error)
}

var (
	ErrEmptyCart     = errors.New("cart is empty, nothing to checkout")
	ErrPayInFlight   = errors.New("checkout already in progress")
	ErrNoRedirectURL = errors.New("checkout session missing redirect url")
)

// View is what the checkout page renders: the authoritative cart, the
// display-only totals breakdown, and whether payment can be initiated.
type View struct {
	Cart    *domain.Cart         `json:"cart"`
	Totals  domain.DisplayTotals `json:"totals"`
	Payable bool                 `json:"payable"`
}

// PayResult carries the provider redirect. FallbackURL is always the same
// URL exposed as a manually clickable link, the recovery path when the
// automatic navigation is blocked.
type PayResult struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
	FallbackURL string `json:"fallbackUrl"`
}

// Controller translates a server-confirmed cart into a redirect to the
// provider-hosted payment page for one identity. A single pay attempt may be
// in flight at a time; a completed attempt is replayed rather than repeated
// until the view is loaded again, so rapid re-triggers mint exactly one
// checkout session per user intent.
type Controller struct {
	api      API
	identity string
	timeout  time.Duration
	taxRate  float64
	log      logrus.FieldLogger

	busy sync.Mutex // pay gate, TryLock fails fast
	mu   sync.RWMutex
	cart *domain.Cart
	last *PayResult
}

func NewController(api API, identity string, timeout time.Duration, taxRate float64, log logrus.FieldLogger) *Controller {
	return &Controller{
		api:      api,
		identity: identity,
		timeout:  timeout,
		taxRate:  taxRate,
		log:      log.WithField("identity", identity),
	}
}

// Load fetches the authoritative cart and builds the view. Loading marks a
// fresh user intent: any previous pay result is discarded.
func (c *Controller) Load(ctx context.Context, creds backend.Credentials) (*View, error) {
	cart, err := c.api.GetCart(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "load checkout")
	}
	c.mu.Lock()
	c.cart = cart.Clone()
	c.last = nil
	c.mu.Unlock()
	return c.view(cart), nil
}

// Pay initiates a checkout session and returns the redirect. The cart is
// re-fetched at click time, not trusted from page load, so a cart emptied
// from another tab blocks here. The session request runs under a bounded
// timeout; a hung backend surfaces as an error instead of a late redirect
// to a stale session.
func (c *Controller) Pay(ctx context.Context, creds backend.Credentials) (*PayResult, error) {
	if !c.busy.TryLock() {
		return nil, ErrPayInFlight
	}
	defer c.busy.Unlock()

	// Replay a completed attempt instead of minting a second session.
	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()
	if last != nil {
		return last, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cart, err := c.api.GetCart(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "confirm cart before payment")
	}
	c.mu.Lock()
	c.cart = cart.Clone()
	c.mu.Unlock()
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	session, err := c.api.CreateCheckoutSession(ctx, creds, cart.Items, uuid.NewString())
	if err != nil {
		return nil, errors.Wrap(err, "create checkout session")
	}
	if session.URL == "" {
		return nil, ErrNoRedirectURL
	}

	result := &PayResult{
		SessionID:   session.SessionID,
		RedirectURL: session.URL,
		FallbackURL: session.URL,
	}
	c.mu.Lock()
	c.last = result
	c.mu.Unlock()
	c.log.WithField("session_id", session.SessionID).Info("checkout session created, redirecting")
	return result, nil
}

// View returns the current view from the held cart without a network call.
func (c *Controller) View() *View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view(c.cart)
}

func (c *Controller) view(cart *domain.Cart) *View {
	if cart == nil {
		cart = &domain.Cart{}
	}
	return &View{
		Cart:    cart.Clone(),
		Totals:  domain.ComputeDisplayTotals(cart, c.taxRate),
		Payable: !cart.IsEmpty(),
	}
}
