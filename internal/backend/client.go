package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ELperrocode/codeskins-storefront/internal/domain"
)

const maxResponseSize = 1 << 20 // 1MB

// Credentials carries the caller's session cookies. They are forwarded on
// every backend call and never stored; the backend resolves the cart owner
// from them.
type Credentials struct {
	Cookies []*http.Cookie
}

// CredentialsFromRequest lifts the inbound request's cookies into
// Credentials for forwarding.
func CredentialsFromRequest(r *http.Request) Credentials {
	return Credentials{Cookies: r.Cookies()}
}

// Client talks to the marketplace REST backend. All calls go through a
// circuit breaker and an instrumented transport; the backend is the single
// source of truth for cart contents and totals.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*http.Response]
	log     logrus.FieldLogger
}

func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "marketplace-backend",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state change")
		},
	})
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:  cb,
		log: log,
	}
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	// Older backend builds put the checkout redirect URL at the top level.
	URL string `json:"url"`
}

type cartPayload struct {
	Cart *domain.Cart `json:"cart"`
}

type addItemRequest struct {
	TemplateID string `json:"templateId"`
	Quantity   int    `json:"quantity"`
}

type checkoutSessionRequest struct {
	Items []domain.CartItem `json:"items"`
}

// GetCart fetches the authoritative cart. An absent cart is a valid state
// and comes back as an empty cart, not an error.
func (c *Client) GetCart(ctx context.Context, creds Credentials) (*domain.Cart, error) {
	env, err := c.do(ctx, creds, http.MethodGet, "/api/cart", nil, "")
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
			return &domain.Cart{}, nil
		}
		return nil, err
	}
	return decodeCart(env)
}

// AddItem adds a template to the cart and returns the updated cart.
func (c *Client) AddItem(ctx context.Context, creds Credentials, templateID string, quantity int) (*domain.Cart, error) {
	env, err := c.do(ctx, creds, http.MethodPost, "/api/cart/add",
		addItemRequest{TemplateID: templateID, Quantity: quantity}, "")
	if err != nil {
		return nil, err
	}
	return decodeCart(env)
}

// UpdateItem sets an item's quantity and returns the updated cart.
func (c *Client) UpdateItem(ctx context.Context, creds Credentials, templateID string, quantity int) (*domain.Cart, error) {
	env, err := c.do(ctx, creds, http.MethodPut, "/api/cart/update",
		addItemRequest{TemplateID: templateID, Quantity: quantity}, "")
	if err != nil {
		return nil, err
	}
	return decodeCart(env)
}

// RemoveItem deletes one item and returns the updated cart.
func (c *Client) RemoveItem(ctx context.Context, creds Credentials, templateID string) (*domain.Cart, error) {
	env, err := c.do(ctx, creds, http.MethodDelete, "/api/cart/remove/"+templateID, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeCart(env)
}

// ClearCart empties the cart. The backend returns a confirmation, not a cart.
func (c *Client) ClearCart(ctx context.Context, creds Credentials) error {
	_, err := c.do(ctx, creds, http.MethodDelete, "/api/cart/clear", nil, "")
	return err
}

// CartCount fetches the badge count. The endpoint predates the response
// envelope, so both the bare `{count}` shape and the enveloped one are
// accepted.
func (c *Client) CartCount(ctx context.Context, creds Credentials) (int, error) {
	env, err := c.do(ctx, creds, http.MethodGet, "/api/cart/count", nil, "")
	if err != nil {
		return 0, err
	}
	var payload struct {
		Count int `json:"count"`
	}
	if env.Success == nil {
		// Bare shape: the whole body was the payload and do() stashed it
		// in Data untouched.
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return 0, errors.Wrap(err, "decode cart count")
		}
		return payload.Count, nil
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return 0, errors.Wrap(err, "decode cart count")
		}
	}
	return payload.Count, nil
}

// CreateCheckoutSession asks the backend to mint a provider checkout session
// for the given items. The items are hints: the backend re-validates prices
// and availability against its own cart record before charging anything.
// idempotencyKey dedupes retries of the same user intent server-side.
func (c *Client) CreateCheckoutSession(ctx context.Context, creds Credentials, items []domain.CartItem, idempotencyKey string) (*domain.CheckoutSession, error) {
	env, err := c.do(ctx, creds, http.MethodPost, "/api/stripe/create-checkout-session",
		checkoutSessionRequest{Items: items}, idempotencyKey)
	if err != nil {
		return nil, err
	}
	var session domain.CheckoutSession
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &session); err != nil {
			return nil, errors.Wrap(err, "decode checkout session")
		}
	}
	if session.URL == "" {
		session.URL = env.URL
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, creds Credentials, method, path string, body any, idempotencyKey string) (*envelope, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	for _, ck := range creds.Cookies {
		req.AddCookie(ck)
	}

	resp, err := c.cb.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Warn("backend call failed")
		return nil, errors.Wrapf(ErrUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "%s %s: read body: %v", method, path, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
			}
			return nil, errors.Wrapf(err, "decode %s %s response", method, path)
		}
	}
	if env.Success == nil {
		// Not an enveloped response; keep the raw payload for the caller.
		env.Data = raw
	}

	if resp.StatusCode >= 400 || (env.Success != nil && !*env.Success) {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

func decodeCart(env *envelope) (*domain.Cart, error) {
	if len(env.Data) == 0 {
		return &domain.Cart{}, nil
	}
	var payload cartPayload
	if err := json.Unmarshal(env.Data, &payload); err == nil && payload.Cart != nil {
		return payload.Cart, nil
	}
	// Some endpoints return the cart document directly under data.
	var cart domain.Cart
	if err := json.Unmarshal(env.Data, &cart); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return &cart, nil
}
