package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RouterDeps collects everything the HTTP surface needs assembled.
type RouterDeps struct {
	Cart           *CartHandler
	Checkout       *CheckoutHandler
	CheckoutProxy  http.Handler
	Log            logrus.FieldLogger
	RequestTimeout time.Duration
}

// NewRouter builds the storefront router with the standard middleware chain.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(EnsureSessionID)
	r.Use(ContextLogger(deps.Log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", deps.Cart.GetCart)
		r.Delete("/", deps.Cart.ClearCart)
		r.Get("/count", deps.Cart.GetCount)
		r.Post("/items", deps.Cart.AddItem)
		r.Put("/items/{templateID}", deps.Cart.UpdateQuantity)
		r.Delete("/items/{templateID}", deps.Cart.RemoveItem)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", deps.Checkout.GetCheckout)
		r.Post("/pay", deps.Checkout.Pay)
	})

	// Same-origin relay so the browser's session cookies reach the backend
	// first-party when creating a checkout session.
	r.Post("/api/stripe/create-checkout-session", deps.CheckoutProxy.ServeHTTP)

	return r
}
