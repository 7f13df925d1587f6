package contentcache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mysteryforge/gamecontext/internal/cache"
	"github.com/mysteryforge/gamecontext/pkg/types"
)

const (
	// DefaultMaxSize bounds the number of cached generations.
	DefaultMaxSize = 200

	// DefaultTTL is applied when GetOrCompute is called with ttl == 0.
	DefaultTTL = 2 * time.Hour

	// NoExpiry as the ttl argument stores the result without a deadline.
	NoExpiry = time.Duration(-1)
)

// Generator produces the content for a cache miss. It is typically a closure
// over a call to the external generation provider.
type Generator func(ctx context.Context) (string, error)

// Config configures a content cache.
type Config struct {
	// MaxSize bounds the entry count; DefaultMaxSize when zero.
	MaxSize int

	// DefaultTTL applies to entries stored with ttl == 0; DefaultTTL
	// (the package constant) when zero.
	DefaultTTL time.Duration

	// SessionScoped mixes a per-instance nonce into every derived key.
	// Identical (category, params) pairs then share entries within this
	// cache but never with another instance. Off by default so identity
	// is purely semantic.
	SessionScoped bool
}

// Cache memoizes generated content keyed by (category, params).
type Cache struct {
	store      *cache.Store[string]
	defaultTTL time.Duration
	nonce      string
}

// New creates a content cache.
func New(cfg Config) (*Cache, error) {
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	store, err := cache.New[string](maxSize)
	if err != nil {
		return nil, err
	}

	defaultTTL := cfg.DefaultTTL
	if defaultTTL == 0 {
		defaultTTL = DefaultTTL
	}

	c := &Cache{
		store:      store,
		defaultTTL: defaultTTL,
	}
	if cfg.SessionScoped {
		c.nonce = uuid.NewString()
	}
	return c, nil
}

// GetOrCompute returns the cached content for (category, params) or invokes
// generate on a miss. A successful result is stored with the given ttl
// before it is returned; ttl == 0 applies the configured default and
// NoExpiry stores without a deadline. A generation failure propagates to the
// caller unchanged and nothing is cached. Concurrent calls for the same key
// may each invoke generate; the last result wins.
func (c *Cache) GetOrCompute(ctx context.Context, category string, params map[string]string, generate Generator, ttl time.Duration) (string, error) {
	key := deriveKey(category, params, c.nonce)

	if content, ok := c.store.Get(key); ok {
		return content, nil
	}

	content, err := generate(ctx)
	if err != nil {
		return "", err
	}

	c.store.Put(key, content, c.effectiveTTL(ttl))
	return content, nil
}

// Invalidate removes the entry for (category, params) if present.
func (c *Cache) Invalidate(category string, params map[string]string) {
	c.store.Invalidate(deriveKey(category, params, c.nonce))
}

// Purge removes every cached generation.
func (c *Cache) Purge() {
	c.store.Purge()
}

// Stats returns the underlying cache counters.
func (c *Cache) Stats() types.CacheStats {
	return c.store.Stats()
}

// StartSweep runs the underlying store's periodic expired-entry purge until
// ctx is canceled.
func (c *Cache) StartSweep(ctx context.Context, interval time.Duration) {
	c.store.StartSweep(ctx, interval)
}

func (c *Cache) effectiveTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl == 0:
		return c.defaultTTL
	case ttl < 0:
		return 0 // stored without a deadline
	default:
		return ttl
	}
}
