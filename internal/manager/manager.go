// Package manager coordinates the context pipeline: chunk -> embed -> store
// -> retrieve. It owns per-entity state, including whether an entity has been
// degraded to lexical retrieval after an embedding failure.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mysteryforge/gamecontext/internal/chunker"
	"github.com/mysteryforge/gamecontext/internal/embedder"
	"github.com/mysteryforge/gamecontext/internal/retriever"
	"github.com/mysteryforge/gamecontext/internal/storage"
	"github.com/mysteryforge/gamecontext/pkg/types"
)

const (
	// DefaultTopK is the number of chunks retrieved when the caller asks
	// for a default-sized context.
	DefaultTopK = 5

	// embedWorkers bounds the concurrent embedding batches per AddText.
	embedWorkers = 4

	// chunkSeparator joins selected chunk texts in the assembled context.
	chunkSeparator = "\n\n"

	// UseDefault as the AddText overlap selects the manager's configured
	// overlap. Zero is a literal zero overlap.
	UseDefault = -1
)

// Config contains configuration for the context manager.
type Config struct {
	ChunkSize int               // default chunk size in bytes (default: chunker.DefaultChunkSize)
	Overlap   int               // default overlap in bytes (default: chunker.DefaultOverlap)
	Embedder  embedder.Embedder // nil opts out of similarity retrieval entirely
	Logger    *log.Logger       // default: log.Default()
}

// Manager is the top-level handle for adding entity text and retrieving
// ranked context. It is safe for concurrent use.
type Manager struct {
	storage  storage.Storage
	embedder embedder.Embedder

	similarity *retriever.SimilaritySelector
	lexical    *retriever.LexicalSelector

	chunkSize int
	overlap   int
	logger    *log.Logger

	// mu guards fallback. Storage has its own serialization.
	mu       sync.RWMutex
	fallback map[string]bool // entities latched to lexical retrieval
}

// New creates a Manager over the given storage. When cfg.Embedder is nil,
// every entity uses lexical retrieval from the start.
func New(store storage.Storage, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}

	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = chunker.DefaultOverlap
	}
	if cfg.ChunkSize <= 0 {
		return nil, types.ErrInvalidChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, types.ErrInvalidOverlap
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	lexical, err := retriever.NewLexicalSelector(store)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		storage:   store,
		embedder:  cfg.Embedder,
		lexical:   lexical,
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.Overlap,
		logger:    cfg.Logger,
		fallback:  make(map[string]bool),
	}

	if cfg.Embedder != nil {
		m.similarity, err = retriever.NewSimilaritySelector(store, cfg.Embedder)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// AddText chunks the text and appends the chunks to the entity's corpus,
// creating the entity on first use. A chunkSize of 0 and an overlap of
// UseDefault take the manager defaults; an overlap of 0 is a literal zero,
// so the full [0, chunkSize) range stays reachable. Embedding happens
// inline; if the provider fails, the chunks are still stored and the entity
// is latched to lexical retrieval.
func (m *Manager) AddText(ctx context.Context, entityID, text string, chunkSize, overlap int) (int, error) {
	if chunkSize == 0 {
		chunkSize = m.chunkSize
	}
	if overlap < 0 {
		// The default overlap only applies when it fits the effective
		// chunk size; a small custom chunkSize drops overlap to zero.
		overlap = 0
		if m.overlap < chunkSize {
			overlap = m.overlap
		}
	}

	chunks, err := chunker.Split(entityID, text, chunkSize, overlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := m.storage.CreateEntity(ctx, entityID); err != nil {
		return 0, fmt.Errorf("failed to create entity: %w", err)
	}

	stored, err := m.storage.AppendChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	if m.similarity != nil {
		m.similarity.InvalidateQueries()
	}

	if m.embedder != nil && !m.fallbackActive(entityID) {
		if err := m.embedChunks(ctx, stored); err != nil {
			m.logger.Printf("embedding failed for entity %s, switching to lexical retrieval: %v", entityID, err)
			m.latchFallback(entityID)
		}
	}

	return len(stored), nil
}

// embedChunks embeds the stored chunks in bounded concurrent batches and
// persists the vectors.
func (m *Manager) embedChunks(ctx context.Context, chunks []types.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	for start := 0; start < len(chunks); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Content
			}

			resp, err := m.embedder.GenerateBatch(gctx, embedder.BatchEmbeddingRequest{Texts: texts})
			if err != nil {
				return err
			}
			if len(resp.Embeddings) != len(batch) {
				return fmt.Errorf("provider returned %d embeddings for %d texts", len(resp.Embeddings), len(batch))
			}

			for i, emb := range resp.Embeddings {
				if err := m.storage.UpsertEmbedding(gctx, &storage.Embedding{
					ChunkID:  batch[i].ID,
					Vector:   emb.Vector,
					Provider: emb.Provider,
					Model:    emb.Model,
				}); err != nil {
					return fmt.Errorf("failed to store embedding: %w", err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// GetContext retrieves the top-k chunks for the query and assembles them into
// a single context string in rank order. maxChars of 0 means unlimited; when
// set, whole chunks are dropped from the tail until the context fits, so a
// first chunk larger than maxChars yields an empty context. k of 0 takes
// DefaultTopK.
func (m *Manager) GetContext(ctx context.Context, entityID, query string, k, maxChars int) (*types.ContextResult, error) {
	if k < 0 {
		return nil, types.ErrInvalidLimit
	}
	if k == 0 {
		k = DefaultTopK
	}

	exists, err := m.storage.EntityExists(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to check entity: %w", err)
	}
	if !exists {
		return nil, types.ErrEntityNotFound
	}

	chunks, usedFallback, err := m.selectChunks(ctx, entityID, query, k)
	if err != nil {
		return nil, err
	}

	return &types.ContextResult{
		EntityID: entityID,
		Chunks:   chunks,
		Context:  assembleContext(chunks, maxChars),
		Fallback: usedFallback,
	}, nil
}

// selectChunks runs the similarity selector when it is available for the
// entity, degrading to lexical on an embedding failure and latching the
// entity so later queries skip the provider.
func (m *Manager) selectChunks(ctx context.Context, entityID, query string, k int) ([]types.ScoredChunk, bool, error) {
	if m.similarity != nil && !m.fallbackActive(entityID) {
		chunks, err := m.similarity.Select(ctx, entityID, query, k)
		if err == nil {
			return chunks, false, nil
		}
		if !errors.Is(err, retriever.ErrUnavailable) {
			return nil, false, err
		}
		m.logger.Printf("similarity retrieval unavailable for entity %s, switching to lexical: %v", entityID, err)
		m.latchFallback(entityID)
	}

	chunks, err := m.lexical.Select(ctx, entityID, query, k)
	if err != nil {
		return nil, true, err
	}
	return chunks, true, nil
}

// assembleContext joins chunk texts in rank order, cutting whole chunks from
// the tail once maxChars would be exceeded.
func assembleContext(chunks []types.ScoredChunk, maxChars int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		add := len(chunk.Chunk.Content)
		if i > 0 {
			add += len(chunkSeparator)
		}
		if maxChars > 0 && b.Len()+add > maxChars {
			break
		}
		if i > 0 {
			b.WriteString(chunkSeparator)
		}
		b.WriteString(chunk.Chunk.Content)
	}
	return b.String()
}

// FullContext returns the entity's entire corpus in document order, joined
// with the chunk separator.
func (m *Manager) FullContext(ctx context.Context, entityID string) (string, error) {
	exists, err := m.storage.EntityExists(ctx, entityID)
	if err != nil {
		return "", fmt.Errorf("failed to check entity: %w", err)
	}
	if !exists {
		return "", types.ErrEntityNotFound
	}

	chunks, err := m.storage.ListChunks(ctx, entityID)
	if err != nil {
		return "", fmt.Errorf("failed to list chunks: %w", err)
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, chunkSeparator), nil
}

// RemoveEntity deletes the entity, its chunks, and its embeddings, and clears
// any latched fallback state.
func (m *Manager) RemoveEntity(ctx context.Context, entityID string) error {
	if err := m.storage.RemoveEntity(ctx, entityID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.ErrEntityNotFound
		}
		return err
	}

	m.mu.Lock()
	delete(m.fallback, entityID)
	m.mu.Unlock()

	if m.similarity != nil {
		m.similarity.InvalidateQueries()
	}
	return nil
}

// EntityStats reports the chunk count and retrieval mode of one entity.
func (m *Manager) EntityStats(ctx context.Context, entityID string) (types.EntityStats, error) {
	exists, err := m.storage.EntityExists(ctx, entityID)
	if err != nil {
		return types.EntityStats{}, fmt.Errorf("failed to check entity: %w", err)
	}
	if !exists {
		return types.EntityStats{}, types.ErrEntityNotFound
	}

	count, err := m.storage.CountChunks(ctx, entityID)
	if err != nil {
		return types.EntityStats{}, err
	}

	return types.EntityStats{
		EntityID:       entityID,
		ChunkCount:     count,
		FallbackActive: m.embedder == nil || m.fallbackActive(entityID),
	}, nil
}

// Stats reports every entity's chunk count and retrieval mode plus the
// total chunk count.
func (m *Manager) Stats(ctx context.Context) (types.ManagerStats, error) {
	entities, err := m.storage.ListEntities(ctx)
	if err != nil {
		return types.ManagerStats{}, fmt.Errorf("failed to list entities: %w", err)
	}

	stats := types.ManagerStats{
		Entities: make([]types.EntityStats, 0, len(entities)),
	}
	for _, e := range entities {
		count, err := m.storage.CountChunks(ctx, e.ID)
		if err != nil {
			return types.ManagerStats{}, err
		}
		stats.Entities = append(stats.Entities, types.EntityStats{
			EntityID:       e.ID,
			ChunkCount:     count,
			FallbackActive: m.embedder == nil || m.fallbackActive(e.ID),
		})
		stats.TotalChunks += count
	}
	return stats, nil
}

// Close releases the embedding provider and the backing storage.
func (m *Manager) Close() error {
	var errs []error
	if m.embedder != nil {
		if err := m.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.storage.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Manager) fallbackActive(entityID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallback[entityID]
}

func (m *Manager) latchFallback(entityID string) {
	m.mu.Lock()
	m.fallback[entityID] = true
	m.mu.Unlock()
}
