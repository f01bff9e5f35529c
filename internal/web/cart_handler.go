package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/cart"
	"github.com/ELperrocode/codeskins-storefront/internal/domain"
	"github.com/ELperrocode/codeskins-storefront/internal/session"
)

const maxItemQuantity = 99

type CartHandler struct {
	sessions *session.Registry
	store    *cart.Store
	taxRate  float64
}

func NewCartHandler(sessions *session.Registry, store *cart.Store, taxRate float64) *CartHandler {
	return &CartHandler{sessions: sessions, store: store, taxRate: taxRate}
}

type AddItemRequestDTO struct {
	TemplateID string `json:"templateId"`
	Quantity   int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// CartViewDTO is the cart page's view model. Totals are presentational; the
// server-reported total inside Cart is the only number checkout trusts.
type CartViewDTO struct {
	Cart   *domain.Cart         `json:"cart"`
	Totals domain.DisplayTotals `json:"totals"`
	Empty  bool                 `json:"empty"`
	Count  int                  `json:"count"`
}

type CountResponseDTO struct {
	Count int `json:"count"`
}

func (h *CartHandler) view(c *domain.Cart) CartViewDTO {
	return CartViewDTO{
		Cart:   c,
		Totals: domain.ComputeDisplayTotals(c, h.taxRate),
		Empty:  c.IsEmpty(),
		Count:  c.Count(),
	}
}

// GetCart serves the cart page view from a fresh backend fetch.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := h.sessions.Get(sessionID(ctx)).Cart
	loaded, err := ctrl.Load(ctx, backend.CredentialsFromRequest(r))
	if err != nil {
		respondActionError(ctx, w, "load cart", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, h.view(loaded))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.TemplateID == "" {
		respondError(ctx, w, http.StatusBadRequest, "invalid_template_id", "templateId is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxItemQuantity {
		respondError(ctx, w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	ctrl := h.sessions.Get(sessionID(ctx)).Cart
	updated, err := ctrl.AddItem(ctx, backend.CredentialsFromRequest(r), req.TemplateID, req.Quantity)
	if err != nil {
		respondActionError(ctx, w, "add to cart", err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, h.view(updated))
}

// UpdateQuantity sets an item's quantity. Zero and negative quantities are
// accepted and remove the item.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	templateID := chi.URLParam(r, "templateID")
	if templateID == "" {
		respondError(ctx, w, http.StatusBadRequest, "invalid_template_id", "templateId is required")
		return
	}
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxItemQuantity {
		respondError(ctx, w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	ctrl := h.sessions.Get(sessionID(ctx)).Cart
	updated, err := ctrl.SetQuantity(ctx, backend.CredentialsFromRequest(r), templateID, req.Quantity)
	if err != nil {
		respondActionError(ctx, w, "update quantity", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, h.view(updated))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	templateID := chi.URLParam(r, "templateID")
	if templateID == "" {
		respondError(ctx, w, http.StatusBadRequest, "invalid_template_id", "templateId is required")
		return
	}

	ctrl := h.sessions.Get(sessionID(ctx)).Cart
	updated, err := ctrl.Remove(ctx, backend.CredentialsFromRequest(r), templateID)
	if err != nil {
		respondActionError(ctx, w, "remove from cart", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, h.view(updated))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := h.sessions.Get(sessionID(ctx)).Cart
	cleared, err := ctrl.Clear(ctx, backend.CredentialsFromRequest(r))
	if err != nil {
		respondActionError(ctx, w, "clear cart", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, h.view(cleared))
}

// GetCount serves the navigation badge. Best-effort: it never fails, it
// reports the cached value or whatever the refresh could establish.
func (h *CartHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count := h.store.Count(ctx, sessionID(ctx), backend.CredentialsFromRequest(r))
	respondJSON(ctx, w, http.StatusOK, CountResponseDTO{Count: count})
}
