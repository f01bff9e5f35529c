package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/cart"
	"github.com/ELperrocode/codeskins-storefront/internal/checkout"
)

type countFetcherStub struct{}

func (countFetcherStub) CartCount(context.Context, backend.Credentials) (int, error) {
	return 0, nil
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func newTestRegistry(idleTTL time.Duration) (*Registry, *cart.Store) {
	log := testLogger()
	store := cart.NewStore(countFetcherStub{}, cart.NewMemoryCache(), log)
	reg := NewRegistry(func(identity string) *Controllers {
		return &Controllers{
			Cart:     cart.NewController(nil, store, identity, log),
			Checkout: checkout.NewController(nil, identity, time.Second, 0, log),
		}
	}, store, idleTTL, log)
	return reg, store
}

func TestGet_SameIdentitySameControllers(t *testing.T) {
	reg, _ := newTestRegistry(time.Hour)

	a := reg.Get("u1")
	b := reg.Get("u1")
	assert.Same(t, a, b, "one controller bundle per identity")
}

func TestGet_NewIdentityGetsFreshControllers(t *testing.T) {
	reg, _ := newTestRegistry(time.Hour)

	a := reg.Get("u1")
	b := reg.Get("u2")
	assert.NotSame(t, a, b, "identity change must yield fresh state")
}

func TestEvict_DropsControllersAndBadge(t *testing.T) {
	reg, store := newTestRegistry(time.Hour)
	ctx := context.Background()

	a := reg.Get("u1")
	store.Publish(ctx, "u1", 3)

	reg.Evict(ctx, "u1")

	b := reg.Get("u1")
	assert.NotSame(t, a, b)
	assert.Equal(t, 0, store.Count(ctx, "u1", backend.Credentials{}),
		"badge resets with the identity")
}

func TestSweep_RemovesIdleEntries(t *testing.T) {
	reg, _ := newTestRegistry(time.Nanosecond)
	ctx := context.Background()

	a := reg.Get("u1")
	time.Sleep(time.Millisecond)
	reg.sweep(ctx)

	b := reg.Get("u1")
	assert.NotSame(t, a, b, "idle entry should have been swept")
}
