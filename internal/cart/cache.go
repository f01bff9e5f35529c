package cart

import (
	"context"
	"errors"
	"sync"
)

// CountCache stores the advisory badge count per identity. It is best-effort:
// a miss or a stale value is acceptable, authoritative reads go to the
// backend.
type CountCache interface {
	Get(ctx context.Context, identity string) (int, error)
	Set(ctx context.Context, identity string, count int) error
	Delete(ctx context.Context, identity string) error
}

var ErrCacheMiss = errors.New("cache miss")

// MemoryCache is the in-process CountCache used when no Redis address is
// configured. Entries live until Delete or process exit; a page reload
// re-fetches from the backend anyway.
type MemoryCache struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{counts: make(map[string]int)}
}

func (m *MemoryCache) Get(_ context.Context, identity string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count, ok := m.counts[identity]
	if !ok {
		return 0, ErrCacheMiss
	}
	return count, nil
}

func (m *MemoryCache) Set(_ context.Context, identity string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[identity] = count
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, identity)
	return nil
}
