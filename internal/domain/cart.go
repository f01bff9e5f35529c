package domain

import "time"

// CartItem is one template in the cart. TemplateID is the identity key:
// a cart holds at most one item per template, quantity aggregates repeat adds.
type CartItem struct {
	TemplateID string  `json:"templateId"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// Cart is the backend-owned cart document. Total is computed server-side;
// the storefront holds a read-only, possibly-stale copy and must never
// submit a locally derived total to checkout.
type Cart struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Count returns the sum of item quantities, the value shown on the badge.
func (c *Cart) Count() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the held document to mutation.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

// CheckoutSession is the opaque reference minted by the backend from a
// snapshot of cart items. URL is the provider-hosted payment page.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
