package types

import (
	"crypto/sha256"
	"errors"
)

// Chunk represents an offset-tracked slice of a longer source text belonging
// to a single entity.
type Chunk struct {
	// Identification
	ID       int64
	EntityID string

	// Content
	Content     string
	ContentHash [32]byte // SHA-256, used for embedding-cache keys

	// Location within the source text the chunk was split from
	StartOffset int
	EndOffset   int
}

// ComputeContentHash computes the SHA-256 hash of the chunk content.
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// Validate checks the chunk's structural invariants.
func (c *Chunk) Validate() error {
	if c.EntityID == "" {
		return errors.New("chunk entity ID cannot be empty")
	}

	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartOffset < 0 || c.EndOffset < c.StartOffset {
		return errors.New("chunk offsets must satisfy 0 <= start <= end")
	}

	if c.EndOffset-c.StartOffset != len(c.Content) {
		return errors.New("chunk offsets must span exactly len(content) bytes")
	}

	return nil
}

// ScoredChunk is a chunk paired with its retrieval relevance score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
	Rank  int // 1-based position in the result list
}

// ContextResult is the outcome of a context retrieval: the selected chunks in
// rank order and the concatenated, size-bounded context text.
type ContextResult struct {
	EntityID string
	Chunks   []ScoredChunk
	Context  string
	Fallback bool // true when the lexical fallback produced the ranking
}
