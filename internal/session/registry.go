package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ELperrocode/codeskins-storefront/internal/cart"
	"github.com/ELperrocode/codeskins-storefront/internal/checkout"
)

// Controllers bundles the per-identity page controllers. A fresh session
// cookie yields a fresh bundle, which is what resets cart state across
// login, logout and session swaps.
type Controllers struct {
	Cart     *cart.Controller
	Checkout *checkout.Controller
}

type entry struct {
	controllers *Controllers
	lastSeen    time.Time
}

// Registry creates and caches controller bundles keyed by session identity.
// Idle entries are swept so abandoned sessions do not pile up in memory.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	newControllers func(identity string) *Controllers
	store          *cart.Store
	idleTTL        time.Duration
	log            logrus.FieldLogger
}

func NewRegistry(newControllers func(identity string) *Controllers, store *cart.Store, idleTTL time.Duration, log logrus.FieldLogger) *Registry {
	return &Registry{
		entries:        make(map[string]*entry),
		newControllers: newControllers,
		store:          store,
		idleTTL:        idleTTL,
		log:            log,
	}
}

// Get returns the controllers for an identity, creating them on first sight.
func (r *Registry) Get(identity string) *Controllers {
	r.mu.RLock()
	e, ok := r.entries[identity]
	r.mu.RUnlock()
	if ok {
		r.touch(identity)
		return e.controllers
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[identity]; ok {
		e.lastSeen = time.Now()
		return e.controllers
	}
	c := r.newControllers(identity)
	r.entries[identity] = &entry{controllers: c, lastSeen: time.Now()}
	return c
}

// Evict drops an identity's controllers and badge cache, e.g. on logout.
func (r *Registry) Evict(ctx context.Context, identity string) {
	r.mu.Lock()
	delete(r.entries, identity)
	r.mu.Unlock()
	r.store.Reset(ctx, identity)
}

// StartJanitor sweeps idle entries until ctx is cancelled.
func (r *Registry) StartJanitor(ctx context.Context) {
	go func() {
		interval := r.idleTTL / 2
		if interval < time.Minute {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

func (r *Registry) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.idleTTL)
	var expired []string
	r.mu.Lock()
	for identity, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, identity)
			expired = append(expired, identity)
		}
	}
	r.mu.Unlock()
	for _, identity := range expired {
		r.store.Reset(ctx, identity)
	}
	if len(expired) > 0 {
		r.log.WithField("count", len(expired)).Debug("swept idle sessions")
	}
}

func (r *Registry) touch(identity string) {
	r.mu.Lock()
	if e, ok := r.entries[identity]; ok {
		e.lastSeen = time.Now()
	}
	r.mu.Unlock()
}
