package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mysteryforge/gamecontext/internal/storage"
	"github.com/mysteryforge/gamecontext/pkg/types"
)

// LexicalSelector ranks chunks by the number of distinct query tokens they
// share with the chunk text, case insensitively. It needs no embeddings and
// serves as the degraded-mode ranking when the embedding provider is down.
type LexicalSelector struct {
	storage storage.Storage
}

// NewLexicalSelector creates a token-overlap selector over the given storage.
func NewLexicalSelector(store storage.Storage) (*LexicalSelector, error) {
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	return &LexicalSelector{storage: store}, nil
}

func (s *LexicalSelector) Name() string { return "lexical" }

// Select scores every chunk of the entity by shared distinct tokens with the
// query. Ties break toward the chunk earlier in the document. When no chunk
// shares any token with the query, the first limit chunks in document order
// are returned with zero scores.
func (s *LexicalSelector) Select(ctx context.Context, entityID, query string, limit int) ([]types.ScoredChunk, error) {
	if limit < 0 {
		return nil, types.ErrInvalidLimit
	}
	if limit == 0 {
		return nil, nil
	}

	chunks, err := s.storage.ListChunks(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryTokens := tokenize(query)

	scored := make([]types.ScoredChunk, len(chunks))
	anyOverlap := false
	for i, chunk := range chunks {
		score := overlapScore(queryTokens, tokenize(chunk.Content))
		if score > 0 {
			anyOverlap = true
		}
		scored[i] = types.ScoredChunk{Chunk: chunk, Score: float64(score)}
	}

	if anyOverlap {
		// Ties break on insertion id, the document order across appended
		// texts; offsets restart at 0 per appended source text.
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].Score != scored[j].Score {
				return scored[i].Score > scored[j].Score
			}
			return scored[i].Chunk.ID < scored[j].Chunk.ID
		})
	}
	// Without any overlap the document-order slice already stands.

	if limit < len(scored) {
		scored = scored[:limit]
	}
	return rankChunks(scored), nil
}

// tokenize lowercases the text and splits it on any non-letter, non-digit
// rune, returning the set of distinct tokens.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

func overlapScore(query, chunk map[string]struct{}) int {
	// Iterate the smaller set.
	if len(chunk) < len(query) {
		query, chunk = chunk, query
	}
	count := 0
	for tok := range query {
		if _, ok := chunk[tok]; ok {
			count++
		}
	}
	return count
}
