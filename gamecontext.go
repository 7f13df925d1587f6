// Package gamecontext assembles the library's pieces into a single session
// handle for an orchestration layer: a bounded content cache in front of a
// text-generation provider, and a per-entity context store with chunking,
// embedding-backed retrieval, and a deterministic lexical fallback.
//
// All state is in-memory and lives for the session. There is no persistence,
// no wire protocol, and no global state; every Session is independent.
package gamecontext

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mysteryforge/gamecontext/internal/contentcache"
	"github.com/mysteryforge/gamecontext/internal/embedder"
	"github.com/mysteryforge/gamecontext/internal/generation"
	"github.com/mysteryforge/gamecontext/internal/manager"
	"github.com/mysteryforge/gamecontext/internal/storage"
	"github.com/mysteryforge/gamecontext/pkg/types"
)

// Re-exported sentinels so callers need not import pkg/types for error checks.
var (
	ErrEntityNotFound   = types.ErrEntityNotFound
	ErrInvalidLimit     = types.ErrInvalidLimit
	ErrInvalidChunkSize = types.ErrInvalidChunkSize
	ErrInvalidOverlap   = types.ErrInvalidOverlap
)

// NoExpiry as a ttl argument caches content without a deadline.
const NoExpiry = contentcache.NoExpiry

// UseDefault as the AddText overlap selects the session's configured
// overlap; zero means no overlap.
const UseDefault = manager.UseDefault

// Config configures a Session. The zero value gives a working session with
// lexical-only retrieval and no generation provider.
type Config struct {
	// Embedder powers similarity retrieval; nil keeps every entity on the
	// lexical path. Use embedder.NewFromEnv to pick a provider from the
	// environment.
	Embedder embedder.Embedder

	// Generator backs GenerateContent. Nil disables it.
	Generator generation.Generator

	// ChunkSize and Overlap are the AddText defaults, in bytes.
	ChunkSize int
	Overlap   int

	// CacheMaxSize and CacheTTL configure the content cache.
	CacheMaxSize int
	CacheTTL     time.Duration

	// SessionScopedCache mixes a per-session nonce into content-cache keys
	// so identical prompts in different sessions never share entries.
	SessionScopedCache bool

	Logger *log.Logger
}

// Session owns one in-memory context store and content cache.
type Session struct {
	manager   *manager.Manager
	content   *contentcache.Cache
	generator generation.Generator
}

// ErrNoGenerator is returned by GenerateContent when the session was built
// without a generation provider.
var ErrNoGenerator = errors.New("gamecontext: no generation provider configured")

// New creates a Session.
func New(cfg Config) (*Session, error) {
	store, err := storage.NewSQLiteStorage()
	if err != nil {
		return nil, err
	}

	mgr, err := manager.New(store, manager.Config{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.Overlap,
		Embedder:  cfg.Embedder,
		Logger:    cfg.Logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	content, err := contentcache.New(contentcache.Config{
		MaxSize:       cfg.CacheMaxSize,
		DefaultTTL:    cfg.CacheTTL,
		SessionScoped: cfg.SessionScopedCache,
	})
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}

	return &Session{
		manager:   mgr,
		content:   content,
		generator: cfg.Generator,
	}, nil
}

// AddText chunks and indexes text for the entity, creating it on first use.
// A chunkSize of 0 and an overlap of UseDefault take the session defaults;
// an overlap of 0 chunks without overlap. It returns the number of chunks
// stored. An embedding provider failure does not fail the call; the entity
// degrades to lexical retrieval.
func (s *Session) AddText(ctx context.Context, entityID, text string, chunkSize, overlap int) (int, error) {
	return s.manager.AddText(ctx, entityID, text, chunkSize, overlap)
}

// GetContext returns the top-k chunks for the query assembled in rank order.
// maxChars of 0 means unlimited; otherwise whole chunks are cut from the
// tail until the context fits.
func (s *Session) GetContext(ctx context.Context, entityID, query string, k, maxChars int) (*types.ContextResult, error) {
	return s.manager.GetContext(ctx, entityID, query, k, maxChars)
}

// FullContext returns the entity's entire corpus in document order.
func (s *Session) FullContext(ctx context.Context, entityID string) (string, error) {
	return s.manager.FullContext(ctx, entityID)
}

// RemoveEntity deletes the entity and everything stored for it.
func (s *Session) RemoveEntity(ctx context.Context, entityID string) error {
	return s.manager.RemoveEntity(ctx, entityID)
}

// EntityStats reports chunk count and retrieval mode for one entity.
func (s *Session) EntityStats(ctx context.Context, entityID string) (types.EntityStats, error) {
	return s.manager.EntityStats(ctx, entityID)
}

// Stats reports aggregate counts across all entities.
func (s *Session) Stats(ctx context.Context) (types.ManagerStats, error) {
	return s.manager.Stats(ctx)
}

// GenerateContent returns the cached content for (category, params) or calls
// the generation provider on a miss, caching a successful result for ttl
// (0 applies the configured default, NoExpiry never expires). A provider
// failure propagates and nothing is cached, so the next call retries.
func (s *Session) GenerateContent(ctx context.Context, category string, params map[string]string, prompt string, ttl time.Duration) (string, error) {
	if s.generator == nil {
		return "", ErrNoGenerator
	}

	return s.content.GetOrCompute(ctx, category, params, func(ctx context.Context) (string, error) {
		result, err := s.generator.Generate(ctx, generation.Request{Prompt: prompt})
		if err != nil {
			return "", err
		}
		return result.Text, nil
	}, ttl)
}

// InvalidateContent drops the cached generation for (category, params).
func (s *Session) InvalidateContent(category string, params map[string]string) {
	s.content.Invalidate(category, params)
}

// ContentStats returns the content cache counters.
func (s *Session) ContentStats() types.CacheStats {
	return s.content.Stats()
}

// StartSweep runs a periodic expired-entry purge on the content cache until
// ctx is canceled. Lazy expiry on access works without it; the sweep just
// reclaims memory for entries that are never touched again.
func (s *Session) StartSweep(ctx context.Context, interval time.Duration) {
	s.content.StartSweep(ctx, interval)
}

// Close releases the generation provider, the embedding provider, and the
// backing store.
func (s *Session) Close() error {
	var errs []error
	if s.generator != nil {
		if err := s.generator.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.manager.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
