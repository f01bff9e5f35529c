package web

import (
	"net/http"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/session"
)

type CheckoutHandler struct {
	sessions *session.Registry
}

func NewCheckoutHandler(sessions *session.Registry) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions}
}

// PayResponseDTO carries the provider redirect plus the always-present
// manual fallback link for when automatic navigation is blocked.
type PayResponseDTO struct {
	Status      string `json:"status"`
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
	FallbackURL string `json:"fallbackUrl"`
}

// GetCheckout serves the checkout view from a fresh authoritative cart
// fetch. An empty cart renders as payable=false, not as an error.
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := h.sessions.Get(sessionID(ctx)).Checkout
	view, err := ctrl.Load(ctx, backend.CredentialsFromRequest(r))
	if err != nil {
		respondActionError(ctx, w, "load checkout", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, view)
}

// Pay initiates the checkout session and returns the redirect target.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl := h.sessions.Get(sessionID(ctx)).Checkout
	result, err := ctrl.Pay(ctx, backend.CredentialsFromRequest(r))
	if err != nil {
		respondActionError(ctx, w, "start checkout", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, PayResponseDTO{
		Status:      "redirecting",
		SessionID:   result.SessionID,
		RedirectURL: result.RedirectURL,
		FallbackURL: result.FallbackURL,
	})
}
