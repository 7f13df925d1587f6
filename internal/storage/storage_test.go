package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysteryforge/gamecontext/pkg/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeChunk(entityID, content string, start int) types.Chunk {
	chunk := types.Chunk{
		EntityID:    entityID,
		Content:     content,
		StartOffset: start,
		EndOffset:   start + len(content),
	}
	chunk.ComputeContentHash()
	return chunk
}

func TestCreateEntityIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "npc-blacksmith"))
	require.NoError(t, s.CreateEntity(ctx, "npc-blacksmith"))

	entities, err := s.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "npc-blacksmith", entities[0].ID)
}

func TestCreateEntityEmptyID(t *testing.T) {
	s := newTestStorage(t)
	assert.Error(t, s.CreateEntity(context.Background(), ""))
}

func TestEntityExists(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	exists, err := s.EntityExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateEntity(ctx, "ghost"))
	exists, err = s.EntityExists(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRemoveEntityCascades(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "town"))
	stored, err := s.AppendChunks(ctx, []types.Chunk{
		makeChunk("town", "The town square bustles at noon.", 0),
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{
		ChunkID:  stored[0].ID,
		Vector:   []float32{0.1, 0.2, 0.3},
		Provider: "local",
		Model:    "test",
	}))

	require.NoError(t, s.RemoveEntity(ctx, "town"))

	count, err := s.CountChunks(ctx, "town")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = s.GetEmbedding(ctx, stored[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveEntityNotFound(t *testing.T) {
	s := newTestStorage(t)
	assert.ErrorIs(t, s.RemoveEntity(context.Background(), "missing"), ErrNotFound)
}

func TestAppendChunksAssignsIDs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "lore"))
	stored, err := s.AppendChunks(ctx, []types.Chunk{
		makeChunk("lore", "first passage", 0),
		makeChunk("lore", "second passage", 13),
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Positive(t, stored[0].ID)
	assert.Greater(t, stored[1].ID, stored[0].ID)
}

func TestAppendChunksAcrossCallsPreservesOrder(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "lore"))
	_, err := s.AppendChunks(ctx, []types.Chunk{makeChunk("lore", "opening scene", 0)})
	require.NoError(t, err)
	_, err = s.AppendChunks(ctx, []types.Chunk{makeChunk("lore", "later addition", 0)})
	require.NoError(t, err)

	chunks, err := s.ListChunks(ctx, "lore")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "opening scene", chunks[0].Content)
	assert.Equal(t, "later addition", chunks[1].Content)
}

func TestAppendChunksEmpty(t *testing.T) {
	s := newTestStorage(t)
	stored, err := s.AppendChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAppendChunksInvalidRollsBack(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "lore"))
	_, err := s.AppendChunks(ctx, []types.Chunk{
		makeChunk("lore", "valid chunk", 0),
		{EntityID: "lore", Content: "", StartOffset: 0, EndOffset: 0},
	})
	require.Error(t, err)

	count, err := s.CountChunks(ctx, "lore")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetChunk(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "lore"))
	stored, err := s.AppendChunks(ctx, []types.Chunk{makeChunk("lore", "a chunk of text", 42)})
	require.NoError(t, err)

	got, err := s.GetChunk(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, stored[0], got)

	_, err = s.GetChunk(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertEmbeddingRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "lore"))
	stored, err := s.AppendChunks(ctx, []types.Chunk{makeChunk("lore", "embedded text", 0)})
	require.NoError(t, err)

	vec := []float32{0.5, -0.25, 1.0, 0.0}
	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{
		ChunkID:  stored[0].ID,
		Vector:   vec,
		Provider: "local",
		Model:    "test",
	}))

	got, err := s.GetEmbedding(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, vec, got.Vector)
	assert.Equal(t, len(vec), got.Dimension)
	assert.Equal(t, "local", got.Provider)

	// Upsert replaces the stored vector.
	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{
		ChunkID:  stored[0].ID,
		Vector:   []float32{1, 2},
		Provider: "local",
		Model:    "test",
	}))
	got, err = s.GetEmbedding(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got.Vector)
}

func TestUpsertEmbeddingEmptyVector(t *testing.T) {
	s := newTestStorage(t)
	assert.Error(t, s.UpsertEmbedding(context.Background(), &Embedding{ChunkID: 1}))
	assert.Error(t, s.UpsertEmbedding(context.Background(), nil))
}

func TestCountEmbeddings(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntity(ctx, "lore"))
	stored, err := s.AppendChunks(ctx, []types.Chunk{
		makeChunk("lore", "chunk one", 0),
		makeChunk("lore", "chunk two", 9),
	})
	require.NoError(t, err)

	count, err := s.CountEmbeddings(ctx, "lore")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{
		ChunkID: stored[0].ID, Vector: []float32{1}, Provider: "local", Model: "test",
	}))

	count, err = s.CountEmbeddings(ctx, "lore")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListChunksManyEntities(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("entity-%d", i)
		require.NoError(t, s.CreateEntity(ctx, id))
		_, err := s.AppendChunks(ctx, []types.Chunk{makeChunk(id, "text for "+id, 0)})
		require.NoError(t, err)
	}

	chunks, err := s.ListChunks(ctx, "entity-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "text for entity-1", chunks[0].Content)
}
