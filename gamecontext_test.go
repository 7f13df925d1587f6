package gamecontext

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysteryforge/gamecontext/internal/embedder"
	"github.com/mysteryforge/gamecontext/internal/generation"
)

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionEndToEnd(t *testing.T) {
	local, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	s := newSession(t, Config{Embedder: local})
	ctx := context.Background()

	texts := []string{
		"The innkeeper remembers every traveler by name.",
		"A hidden cellar below the inn stores contraband.",
	}
	for _, text := range texts {
		_, err := s.AddText(ctx, "inn", text, 0, 0)
		require.NoError(t, err)
	}

	result, err := s.GetContext(ctx, "inn", texts[1], 1, 0)
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, texts[1], result.Context)

	full, err := s.FullContext(ctx, "inn")
	require.NoError(t, err)
	assert.Equal(t, texts[0]+"\n\n"+texts[1], full)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Entities, 1)
	assert.Equal(t, "inn", stats.Entities[0].EntityID)
	assert.Equal(t, 2, stats.Entities[0].ChunkCount)
	assert.False(t, stats.Entities[0].FallbackActive)
	assert.Equal(t, 2, stats.TotalChunks)

	require.NoError(t, s.RemoveEntity(ctx, "inn"))
	_, err = s.GetContext(ctx, "inn", "anything", 1, 0)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestSessionLexicalOnly(t *testing.T) {
	s := newSession(t, Config{})
	ctx := context.Background()

	_, err := s.AddText(ctx, "npc", "the ferryman takes two coins", 0, 0)
	require.NoError(t, err)

	entity, err := s.EntityStats(ctx, "npc")
	require.NoError(t, err)
	assert.True(t, entity.FallbackActive)

	result, err := s.GetContext(ctx, "npc", "ferryman coins", 1, 0)
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Equal(t, "the ferryman takes two coins", result.Context)
}

func TestGenerateContentCaches(t *testing.T) {
	calls := 0
	gen := generation.GeneratorFunc(func(ctx context.Context, req generation.Request) (*generation.Result, error) {
		calls++
		return &generation.Result{Text: "generated: " + req.Prompt}, nil
	})

	s := newSession(t, Config{Generator: gen})
	ctx := context.Background()
	params := map[string]string{"npc": "ferryman", "mood": "gruff"}

	first, err := s.GenerateContent(ctx, "greeting", params, "greet the player", 0)
	require.NoError(t, err)
	assert.Equal(t, "generated: greet the player", first)

	second, err := s.GenerateContent(ctx, "greeting", params, "greet the player", 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	s.InvalidateContent("greeting", params)
	_, err = s.GenerateContent(ctx, "greeting", params, "greet the player", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	stats := s.ContentStats()
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestGenerateContentFailureNotCached(t *testing.T) {
	genErr := errors.New("rate limited")
	calls := 0
	gen := generation.GeneratorFunc(func(ctx context.Context, req generation.Request) (*generation.Result, error) {
		calls++
		if calls == 1 {
			return nil, genErr
		}
		return &generation.Result{Text: "ok"}, nil
	})

	s := newSession(t, Config{Generator: gen})
	ctx := context.Background()

	_, err := s.GenerateContent(ctx, "greeting", nil, "hello", 0)
	assert.ErrorIs(t, err, genErr)

	text, err := s.GenerateContent(ctx, "greeting", nil, "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestGenerateContentNoProvider(t *testing.T) {
	s := newSession(t, Config{})
	_, err := s.GenerateContent(context.Background(), "greeting", nil, "hello", 0)
	assert.ErrorIs(t, err, ErrNoGenerator)
}
