package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELperrocode/codeskins-storefront/internal/domain"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func testCreds() Credentials {
	return Credentials{Cookies: []*http.Cookie{{Name: "sid", Value: "abc"}}}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, testLogger()), srv
}

func TestGetCart_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		cookie, err := r.Cookie("sid")
		require.NoError(t, err, "session cookie must be forwarded")
		assert.Equal(t, "abc", cookie.Value)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"cart": map[string]any{
					"id":    "c1",
					"items": []map[string]any{{"templateId": "t1", "price": 10.0, "quantity": 2}},
					"total": 20.0,
				},
			},
		})
	})

	cart, err := client.GetCart(context.Background(), testCreds())
	require.NoError(t, err)
	assert.Equal(t, "c1", cart.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "t1", cart.Items[0].TemplateID)
	assert.Equal(t, 20.0, cart.Total)
}

func TestGetCart_AbsentCartIsEmptyNotError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "cart not found"})
	})

	cart, err := client.GetCart(context.Background(), testCreds())
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestUpdateItem_ApplicationFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "template no longer available",
		})
	})

	_, err := client.UpdateItem(context.Background(), testCreds(), "t1", 3)
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, "template no longer available", apiErr.Message)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(srv.URL, time.Second, testLogger())
	srv.Close()

	_, err := client.GetCart(context.Background(), testCreds())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)
}

func TestCartCount_BareShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cart/count", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 4})
	})

	count, err := client.CartCount(context.Background(), testCreds())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestCartCount_EnvelopedShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]int{"count": 7},
		})
	})

	count, err := client.CartCount(context.Background(), testCreds())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestCreateCheckoutSession_SendsItemsAndIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotItems []domain.CartItem
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		var req struct {
			Items []domain.CartItem `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotItems = req.Items

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"sessionId": "cs_123", "url": "https://pay.example/cs_123"},
		})
	})

	items := []domain.CartItem{{TemplateID: "t1", Price: 10, Quantity: 2}}
	session, err := client.CreateCheckoutSession(context.Background(), testCreds(), items, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.SessionID)
	assert.Equal(t, "https://pay.example/cs_123", session.URL)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, items, gotItems)
}

func TestCreateCheckoutSession_TopLevelURLCompat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"url":     "https://pay.example/legacy",
		})
	})

	session, err := client.CreateCheckoutSession(context.Background(), testCreds(), nil, "key-2")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/legacy", session.URL)
}

func TestRemoveItem_PathContainsTemplateID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/cart/remove/t42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"cart": map[string]any{"id": "c1", "items": []any{}, "total": 0.0}},
		})
	})

	cart, err := client.RemoveItem(context.Background(), testCreds(), "t42")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}
