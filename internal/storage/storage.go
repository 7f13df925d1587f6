package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mysteryforge/gamecontext/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// Entity is one logical text corpus (a character, a storyline).
type Entity struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Embedding is a stored chunk embedding.
type Embedding struct {
	ChunkID   int64
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// ScoredChunk pairs a stored chunk with its similarity score against a
// query vector.
type ScoredChunk struct {
	Chunk types.Chunk
	Score float64
}

// Storage defines the persistence boundary for entities, chunks, and
// embeddings. All state is process-lifetime; Close discards it.
type Storage interface {
	// Entity operations
	CreateEntity(ctx context.Context, entityID string) error // idempotent
	EntityExists(ctx context.Context, entityID string) (bool, error)
	ListEntities(ctx context.Context) ([]Entity, error)
	RemoveEntity(ctx context.Context, entityID string) error

	// Chunk operations. Chunks are append-only; AppendChunks assigns IDs in
	// document order and returns the stored copies.
	AppendChunks(ctx context.Context, chunks []types.Chunk) ([]types.Chunk, error)
	ListChunks(ctx context.Context, entityID string) ([]types.Chunk, error)
	CountChunks(ctx context.Context, entityID string) (int, error)
	GetChunk(ctx context.Context, chunkID int64) (types.Chunk, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, emb *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)
	CountEmbeddings(ctx context.Context, entityID string) (int, error)

	// SearchVector ranks an entity's chunks by cosine similarity to the
	// query vector, descending, ties broken by document order. It returns
	// at most limit results; a limit beyond the corpus returns everything.
	SearchVector(ctx context.Context, entityID string, query []float32, limit int) ([]ScoredChunk, error)

	Close() error
}
