package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mysteryforge/gamecontext/internal/cache"
)

// Errors shared by both providers.
var (
	// ErrProviderFailed wraps a provider call that failed after retries.
	ErrProviderFailed = errors.New("embedding provider failed")

	// ErrUnknownProvider is returned by the factory for a provider name it
	// does not recognize.
	ErrUnknownProvider = errors.New("unknown embedding provider")

	// ErrEmptyText rejects requests with nothing to embed.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrBatchTooLarge rejects batches beyond the provider limit.
	ErrBatchTooLarge = errors.New("batch size exceeds limit")

	// ErrNoAPIKey is returned when a remote provider is selected without
	// credentials.
	ErrNoAPIKey = errors.New("no API key configured")
)

// Embedding is a fixed-length vector representation of a text with metadata.
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // content hash for caching
}

// EmbeddingRequest is a request to embed a single text.
type EmbeddingRequest struct {
	Text  string
	Model string // optional override of the provider default
}

// BatchEmbeddingRequest embeds multiple texts in one provider call.
type BatchEmbeddingRequest struct {
	Texts []string
	Model string
}

// BatchEmbeddingResponse carries the embeddings for a batch request in
// input order.
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder generates embeddings for texts.
type Embedder interface {
	// GenerateEmbedding embeds a single text.
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch embeds multiple texts efficiently.
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension returns the embedding dimension for this provider.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// DefaultCacheSize bounds the embedding cache when no size is configured.
const DefaultCacheSize = 10000

// Cache memoizes embeddings by content hash on top of the bounded LRU
// store. Entries carry no TTL: an embedding for a given text never goes
// stale within a session.
type Cache struct {
	store *cache.Store[*Embedding]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	store, err := cache.New[*Embedding](maxLen)
	if err != nil {
		// Only reachable with a non-positive size, which was corrected above.
		store, _ = cache.New[*Embedding](DefaultCacheSize)
	}
	return &Cache{store: store}
}

// Get retrieves a deep copy of a cached embedding. Returning a copy keeps
// caller mutations out of the cache.
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.store.Get(hash)
	if !ok {
		return nil, false
	}

	vector := make([]float32, len(emb.Vector))
	copy(vector, emb.Vector)

	return &Embedding{
		Vector:    vector,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
		Hash:      emb.Hash,
	}, true
}

// Set stores an embedding; LRU eviction applies at capacity.
func (c *Cache) Set(hash string, emb *Embedding) {
	c.store.Put(hash, emb, 0)
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.store.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.store.Purge()
}

// ComputeHash computes the SHA-256 hash of text for cache keying.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateRequest validates a single-text request.
func ValidateRequest(req EmbeddingRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest validates a batch request.
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrEmptyText)
	}

	for i, text := range req.Texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}

	return nil
}
