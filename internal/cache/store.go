package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mysteryforge/gamecontext/pkg/types"
)

// DefaultTTL is applied by callers that want an expiry but have no opinion.
const DefaultTTL = time.Hour

// entry wraps a cached value with its lifetime metadata.
type entry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time // zero means the entry never expires
}

// expired reports whether the entry is past its deadline at time now.
func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is a bounded key/value cache with LRU eviction and per-entry TTL.
// All methods are safe for concurrent use.
type Store[V any] struct {
	mu      sync.RWMutex
	entries *lru.Cache[string, *entry[V]]
	maxSize int

	hits   atomic.Uint64
	misses atomic.Uint64

	// now is replaceable in tests to simulate the passage of time
	now func() time.Time
}

// New creates a store holding at most maxSize entries. maxSize must be at
// least 1.
func New[V any](maxSize int) (*Store[V], error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("cache: max size must be >= 1, got %d", maxSize)
	}

	entries, err := lru.New[string, *entry[V]](maxSize)
	if err != nil {
		return nil, fmt.Errorf("cache: create LRU: %w", err)
	}

	return &Store[V]{
		entries: entries,
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// Put inserts or overwrites the value under key and marks it most recently
// used. A ttl of zero or less means the entry never expires. When the store
// is full the least recently used entry is evicted first.
func (s *Store[V]) Put(key string, value V, ttl time.Duration) {
	now := s.now()
	e := &entry[V]{
		value:     value,
		createdAt: now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	s.entries.Add(key, e)
	s.mu.Unlock()
}

// Get returns the value for key and marks it most recently used. An absent
// or expired key is a miss; an expired entry is removed on the way out.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	s.mu.RLock()
	e, ok := s.entries.Get(key)
	if !ok {
		s.mu.RUnlock()
		s.misses.Add(1)
		return zero, false
	}

	if e.expired(s.now()) {
		s.mu.RUnlock()

		// Upgrade to a write lock to drop the stale entry. Re-check under
		// the lock: another writer may have replaced it meanwhile.
		s.mu.Lock()
		if cur, still := s.entries.Peek(key); still && cur.expired(s.now()) {
			s.entries.Remove(key)
		}
		s.mu.Unlock()

		s.misses.Add(1)
		return zero, false
	}

	value := e.value
	s.mu.RUnlock()

	s.hits.Add(1)
	return value, true
}

// Invalidate removes key if present; removing an absent key is a no-op.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	s.entries.Remove(key)
	s.mu.Unlock()
}

// Purge removes every entry. Hit/miss counters are preserved.
func (s *Store[V]) Purge() {
	s.mu.Lock()
	s.entries.Purge()
	s.mu.Unlock()
}

// Len returns the current number of entries, expired-but-unswept included.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (s *Store[V]) Stats() types.CacheStats {
	s.mu.RLock()
	size := s.entries.Len()
	s.mu.RUnlock()

	return types.CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Size:    size,
		MaxSize: s.maxSize,
	}
}

// RemoveExpired drops every entry past its deadline and returns the number
// removed. The lock is taken per key so readers are never blocked for the
// duration of the whole scan.
func (s *Store[V]) RemoveExpired() int {
	s.mu.RLock()
	keys := s.entries.Keys()
	s.mu.RUnlock()

	removed := 0
	for _, key := range keys {
		s.mu.Lock()
		if e, ok := s.entries.Peek(key); ok && e.expired(s.now()) {
			s.entries.Remove(key)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// StartSweep runs a periodic expired-entry purge until ctx is canceled.
// The sweep is optional: lazy removal on Get already keeps expired entries
// observably absent.
func (s *Store[V]) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RemoveExpired()
			}
		}
	}()
}
