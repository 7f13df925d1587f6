package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/mysteryforge/gamecontext/pkg/types"
)

// serializeVector encodes a float32 vector as little-endian bytes.
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector decodes a little-endian byte blob into a float32 vector.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or a zero-magnitude vector score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SearchVector scores every embedded chunk of the entity against the query
// vector and returns the top results by cosine similarity. Ties break toward
// the chunk earlier in the document. A limit beyond the corpus size returns
// everything available.
func (s *SQLiteStorage) SearchVector(ctx context.Context, entityID string, query []float32, limit int) ([]ScoredChunk, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if limit < 0 {
		return nil, types.ErrInvalidLimit
	}
	if limit == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.entity_id, c.content, c.content_hash, c.start_offset, c.end_offset, e.vector
		FROM chunks c
		INNER JOIN embeddings e ON e.chunk_id = c.id
		WHERE c.entity_id = ?
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []ScoredChunk
	for rows.Next() {
		var chunk types.Chunk
		var hash, blob []byte

		if err := rows.Scan(&chunk.ID, &chunk.EntityID, &chunk.Content, &hash,
			&chunk.StartOffset, &chunk.EndOffset, &blob); err != nil {
			return nil, err
		}
		copy(chunk.ContentHash[:], hash)

		candidates = append(candidates, ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(query, deserializeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Ties break on insertion id, which is document order across appended
	// texts. Offsets restart at 0 for every appended source text, so they
	// cannot order the corpus as a whole.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})

	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
