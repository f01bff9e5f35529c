package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodySize = 1 << 20 // 1MB

// CheckoutSessionHandler is the same-origin relay for checkout-session
// creation. The browser posts here so its session cookies travel first-party;
// the handler forwards body and cookies to the backend and passes the
// response back unchanged, including any Set-Cookie headers.
type CheckoutSessionHandler struct {
	backendURL string
	client     *http.Client
	log        logrus.FieldLogger
}

func NewCheckoutSessionHandler(backendURL string, timeout time.Duration, log logrus.FieldLogger) *CheckoutSessionHandler {
	return &CheckoutSessionHandler{
		backendURL: backendURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

func (h *CheckoutSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.respondFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
		h.backendURL+"/api/stripe/create-checkout-session", bytes.NewReader(body))
	if err != nil {
		h.respondFailure(w, http.StatusInternalServerError, "checkout is temporarily unavailable")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	for _, ck := range r.Cookies() {
		req.AddCookie(ck)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		// Do not leak transport detail to the client.
		h.log.WithError(err).Error("checkout session relay failed")
		h.respondFailure(w, http.StatusBadGateway, "checkout is temporarily unavailable")
		return
	}
	defer resp.Body.Close()

	// Session-cookie updates from the backend must reach the browser.
	for _, sc := range resp.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", sc)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxBodySize)); err != nil {
		h.log.WithError(err).Warn("relay response copy interrupted")
	}
}

func (h *CheckoutSessionHandler) respondFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	}); err != nil {
		h.log.WithError(err).Warn("failed to encode relay error")
	}
}
