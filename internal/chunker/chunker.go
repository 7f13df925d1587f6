package chunker

import (
	"fmt"

	"github.com/mysteryforge/gamecontext/pkg/types"
)

const (
	// DefaultChunkSize is the window size used by callers with no opinion.
	DefaultChunkSize = 500

	// DefaultOverlap is the companion window overlap.
	DefaultOverlap = 50

	// TokensPerChar is the heuristic for estimating tokens (chars/4).
	TokensPerChar = 4
)

// Split divides text into overlapping chunks for entityID using a sliding
// window. chunkSize must be positive and overlap must lie in [0, chunkSize).
// An invalid configuration is rejected immediately; it is never retried or
// silently corrected.
//
// Chunk i starts at offset i*step where step = chunkSize - overlap. The
// window stops once it would start inside the final overlap region, so the
// final chunk may be shorter than chunkSize. Empty text produces no chunks.
func Split(entityID, text string, chunkSize, overlap int) ([]types.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", types.ErrInvalidChunkSize, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d, chunk size %d", types.ErrInvalidOverlap, overlap, chunkSize)
	}

	if text == "" {
		return nil, nil
	}

	if len(text) <= chunkSize {
		chunk := types.Chunk{
			EntityID:    entityID,
			Content:     text,
			StartOffset: 0,
			EndOffset:   len(text),
		}
		chunk.ComputeContentHash()
		return []types.Chunk{chunk}, nil
	}

	step := chunkSize - overlap
	chunks := make([]types.Chunk, 0, ChunkCount(len(text), chunkSize, overlap))

	// A window starting inside the final overlap region would contribute no
	// bytes beyond the previous chunk, so iteration stops at len(text)-overlap.
	for start := 0; start < len(text)-overlap; start += step {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}

		chunk := types.Chunk{
			EntityID:    entityID,
			Content:     text[start:end],
			StartOffset: start,
			EndOffset:   end,
		}
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// ChunkCount returns the number of chunks Split produces for a text of
// length textLen without materializing them.
func ChunkCount(textLen, chunkSize, overlap int) int {
	if textLen <= 0 || chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return 0
	}
	if textLen <= chunkSize {
		return 1
	}
	step := chunkSize - overlap
	return (textLen - overlap + step - 1) / step
}

// Reassemble reverses Split: it concatenates the first step bytes of each
// chunk and the final chunk in full. Chunks must be in document order.
func Reassemble(chunks []types.Chunk, chunkSize, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}

	step := chunkSize - overlap
	var out []byte
	for i, chunk := range chunks {
		if i == len(chunks)-1 {
			out = append(out, chunk.Content...)
			break
		}
		prefix := chunk.Content
		if len(prefix) > step {
			prefix = prefix[:step]
		}
		out = append(out, prefix...)
	}
	return string(out)
}

// EstimateTokenCount estimates the number of model tokens in a string.
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
