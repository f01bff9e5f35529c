package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/cart"
	"github.com/ELperrocode/codeskins-storefront/internal/checkout"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		requestLogger(ctx).WithError(err).Warn("failed to encode response")
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, ErrorResponse{Error: message, Code: code})
}

// respondActionError maps the error taxonomy to user-visible failures. The
// message always names the failed action; the last-known-good view stays on
// the client's side, nothing is retried automatically.
func respondActionError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	log := requestLogger(ctx).WithError(err).WithField("action", action)
	switch {
	case errors.Is(err, cart.ErrMutationInFlight) || errors.Is(err, checkout.ErrPayInFlight):
		log.Debug("rejected concurrent operation")
		respondError(ctx, w, http.StatusConflict, "busy",
			"Another operation is in progress, please wait")
	case errors.Is(err, checkout.ErrEmptyCart):
		log.Debug("checkout blocked on empty cart")
		respondError(ctx, w, http.StatusBadRequest, "empty_cart",
			"Your cart is empty")
	case errors.Is(err, backend.ErrUnavailable):
		log.Warn("backend unreachable")
		respondError(ctx, w, http.StatusBadGateway, "connection_error",
			"Failed to "+action+": connection error")
	default:
		if apiErr, ok := backend.AsAPIError(err); ok {
			log.Info("backend rejected request")
			msg := apiErr.Message
			if msg == "" {
				msg = "Failed to " + action
			}
			respondError(ctx, w, httpStatusFor(apiErr.Status), "backend_error", msg)
			return
		}
		log.Error("request failed")
		respondError(ctx, w, http.StatusInternalServerError, "internal_error",
			"Failed to "+action)
	}
}

// httpStatusFor passes client errors through and collapses everything else
// to a gateway error, mirroring how upstream statuses reach the browser.
func httpStatusFor(backendStatus int) int {
	if backendStatus >= 400 && backendStatus < 500 {
		return backendStatus
	}
	return http.StatusBadGateway
}
