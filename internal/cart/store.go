package cart

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
)

// CountFetcher is the slice of the backend client the Store needs.
type CountFetcher interface {
	CartCount(ctx context.Context, creds backend.Credentials) (int, error)
}

// Store holds the advisory badge count per identity. It is a best-effort
// cache with a refresh-on-demand policy: values may lag the true server
// count, and nothing that needs an authoritative count reads it.
type Store struct {
	api   CountFetcher
	cache CountCache
	sfg   singleflight.Group
	log   logrus.FieldLogger
}

func NewStore(api CountFetcher, cache CountCache, log logrus.FieldLogger) *Store {
	return &Store{api: api, cache: cache, log: log}
}

// Count returns the cached badge value, refreshing from the backend on a
// miss. It never fails: the badge falls back to the last known value, or 0.
func (s *Store) Count(ctx context.Context, identity string, creds backend.Credentials) int {
	count, err := s.cache.Get(ctx, identity)
	if err == nil {
		return count
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.log.WithError(err).Warn("count cache get error")
	}
	return s.Refresh(ctx, identity, creds)
}

// Refresh fetches the count from the backend. Concurrent refreshes for one
// identity collapse into a single backend call. On failure the previous
// cached value is kept and returned; the badge is never an error state.
func (s *Store) Refresh(ctx context.Context, identity string, creds backend.Credentials) int {
	v, _, _ := s.sfg.Do(identity, func() (interface{}, error) {
		count, err := s.api.CartCount(ctx, creds)
		if err != nil {
			s.log.WithError(err).Debug("badge refresh failed, keeping previous value")
			prev, cacheErr := s.cache.Get(ctx, identity)
			if cacheErr != nil {
				return 0, nil
			}
			return prev, nil
		}
		if err := s.cache.Set(ctx, identity, count); err != nil {
			s.log.WithError(err).Warn("count cache set error")
		}
		return count, nil
	})
	return v.(int)
}

// Publish records a count known from a server response (e.g. the cart a
// mutation returned), avoiding a second round trip.
func (s *Store) Publish(ctx context.Context, identity string, count int) {
	if count < 0 {
		count = 0
	}
	if err := s.cache.Set(ctx, identity, count); err != nil {
		s.log.WithError(err).Warn("count cache set error")
	}
}

// Increment adjusts the badge optimistically after a known successful add.
func (s *Store) Increment(ctx context.Context, identity string, n int) {
	s.adjust(ctx, identity, n)
}

// Decrement adjusts the badge optimistically after a known successful
// remove, clamped at 0.
func (s *Store) Decrement(ctx context.Context, identity string, n int) {
	s.adjust(ctx, identity, -n)
}

func (s *Store) adjust(ctx context.Context, identity string, delta int) {
	count, err := s.cache.Get(ctx, identity)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		s.log.WithError(err).Warn("count cache get error")
		return
	}
	count += delta
	if count < 0 {
		count = 0
	}
	if err := s.cache.Set(ctx, identity, count); err != nil {
		s.log.WithError(err).Warn("count cache set error")
	}
}

// Reset drops the cached value for an identity. Called when the
// authenticated identity changes (login, logout, session swap); the next
// read re-fetches from the backend.
func (s *Store) Reset(ctx context.Context, identity string) {
	if err := s.cache.Delete(ctx, identity); err != nil {
		s.log.WithError(err).Warn("count cache delete error")
	}
}
