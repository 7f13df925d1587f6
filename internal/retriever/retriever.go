// Package retriever ranks an entity's stored chunks against a query. Two
// selectors share one interface: a similarity selector backed by vector
// embeddings, and a lexical selector used when embeddings cannot be produced.
package retriever

import (
	"context"
	"errors"

	"github.com/mysteryforge/gamecontext/pkg/types"
)

// ErrUnavailable reports that a selector cannot serve queries right now,
// typically because the embedding provider failed. Callers may switch to a
// different selector when they see it.
var ErrUnavailable = errors.New("retriever: selector unavailable")

// Selector ranks the chunks of one entity against a query and returns at
// most limit of them, best first, each carrying its score and rank.
type Selector interface {
	// Select returns up to limit scored chunks for the entity. A limit
	// beyond the corpus size returns every chunk, zero returns nothing,
	// and a negative limit is an error.
	Select(ctx context.Context, entityID, query string, limit int) ([]types.ScoredChunk, error)

	// Name identifies the ranking strategy.
	Name() string
}

// rankChunks fills in 1-based ranks on an already ordered result slice.
func rankChunks(chunks []types.ScoredChunk) []types.ScoredChunk {
	for i := range chunks {
		chunks[i].Rank = i + 1
	}
	return chunks
}
