package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/checkout"
	"github.com/ELperrocode/codeskins-storefront/internal/domain"
)

func TestGetCheckout_PayableWithItems(t *testing.T) {
	router := newTestRouter(&backendMock{cart: sampleCart()})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var view checkout.View
	if err := json.NewDecoder(recorder.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if !view.Payable {
		t.Error("cart with items should be payable")
	}
	if view.Totals.Subtotal != 20 {
		t.Errorf("expected subtotal 20, got %v", view.Totals.Subtotal)
	}
}

func TestGetCheckout_EmptyCartNotPayable(t *testing.T) {
	router := newTestRouter(&backendMock{cart: &domain.Cart{}})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("empty cart is a valid view, got %d", recorder.Code)
	}
	var view checkout.View
	_ = json.NewDecoder(recorder.Body).Decode(&view)
	if view.Payable {
		t.Error("empty cart must not be payable")
	}
}

func TestPay_Success(t *testing.T) {
	m := &backendMock{
		cart: sampleCart(),
		sess: &domain.CheckoutSession{SessionID: "cs_1", URL: "https://pay.example/cs_1"},
	}
	router := newTestRouter(m)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/checkout/pay", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var resp PayResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "redirecting" {
		t.Errorf("expected redirecting status, got %q", resp.Status)
	}
	if resp.RedirectURL != "https://pay.example/cs_1" {
		t.Errorf("unexpected redirect url %q", resp.RedirectURL)
	}
	if resp.FallbackURL != resp.RedirectURL {
		t.Error("fallback link must always accompany the redirect")
	}
	if m.sessionCalls != 1 {
		t.Errorf("expected exactly one session request, got %d", m.sessionCalls)
	}
}

func TestPay_EmptyCartBlocked(t *testing.T) {
	m := &backendMock{cart: &domain.Cart{}}
	router := newTestRouter(m)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/checkout/pay", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	var resp ErrorResponse
	_ = json.NewDecoder(recorder.Body).Decode(&resp)
	if resp.Code != "empty_cart" {
		t.Errorf("expected empty_cart, got %q", resp.Code)
	}
	if m.sessionCalls != 0 {
		t.Errorf("no session request may be issued for an empty cart, got %d", m.sessionCalls)
	}
}

func TestPay_BackendFailure(t *testing.T) {
	m := &backendMock{cart: sampleCart(), sessionErr: backend.ErrUnavailable}
	router := newTestRouter(m)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/checkout/pay", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", recorder.Code)
	}
	var resp ErrorResponse
	_ = json.NewDecoder(recorder.Body).Decode(&resp)
	if resp.Code != "connection_error" {
		t.Errorf("expected connection_error, got %q", resp.Code)
	}
}
