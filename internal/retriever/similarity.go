package retriever

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/mysteryforge/gamecontext/internal/cache"
	"github.com/mysteryforge/gamecontext/internal/embedder"
	"github.com/mysteryforge/gamecontext/internal/storage"
	"github.com/mysteryforge/gamecontext/pkg/types"
)

const (
	// DefaultQueryCacheSize bounds the memoized query results.
	DefaultQueryCacheSize = 256

	// DefaultQueryCacheTTL keeps memoized results briefly; mutations to
	// the corpus purge the cache outright.
	DefaultQueryCacheTTL = 2 * time.Minute
)

// SimilaritySelector ranks chunks by cosine similarity between the query
// embedding and stored chunk embeddings.
type SimilaritySelector struct {
	storage  storage.Storage
	embedder embedder.Embedder
	queries  *cache.Store[[]types.ScoredChunk]
	cacheTTL time.Duration
}

// NewSimilaritySelector creates a selector over the given storage and
// embedding provider. Repeated queries against an unchanged corpus are served
// from a small bounded cache.
func NewSimilaritySelector(store storage.Storage, emb embedder.Embedder) (*SimilaritySelector, error) {
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}

	queries, err := cache.New[[]types.ScoredChunk](DefaultQueryCacheSize)
	if err != nil {
		return nil, err
	}

	return &SimilaritySelector{
		storage:  store,
		embedder: emb,
		queries:  queries,
		cacheTTL: DefaultQueryCacheTTL,
	}, nil
}

func (s *SimilaritySelector) Name() string { return "similarity" }

// Select embeds the query and scans the entity's embedded chunks. An
// embedding provider failure surfaces as ErrUnavailable so callers can fall
// back to lexical ranking.
func (s *SimilaritySelector) Select(ctx context.Context, entityID, query string, limit int) ([]types.ScoredChunk, error) {
	if limit < 0 {
		return nil, types.ErrInvalidLimit
	}
	if limit == 0 {
		return nil, nil
	}

	key := queryKey(entityID, query, limit)
	if cached, ok := s.queries.Get(key); ok {
		return cached, nil
	}

	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	scored, err := s.storage.SearchVector(ctx, entityID, emb.Vector, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]types.ScoredChunk, len(scored))
	for i, sc := range scored {
		results[i] = types.ScoredChunk{Chunk: sc.Chunk, Score: sc.Score}
	}
	results = rankChunks(results)

	s.queries.Put(key, results, s.cacheTTL)
	return results, nil
}

// InvalidateQueries drops all memoized query results. Called after any
// corpus mutation.
func (s *SimilaritySelector) InvalidateQueries() {
	s.queries.Purge()
}

func queryKey(entityID, query string, limit int) string {
	sum := sha256.Sum256([]byte(entityID + "\x00" + query + "\x00" + strconv.Itoa(limit)))
	return hex.EncodeToString(sum[:])
}
