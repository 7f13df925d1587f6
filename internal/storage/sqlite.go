package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mysteryforge/gamecontext/pkg/types"
)

// SQLiteStorage implements Storage on an in-memory SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a named in-memory database. The random name keeps
// instances isolated from each other; cache=shared keeps the pool's
// connections on the same data.
func openDatabase() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	// A single connection both serializes writers and keeps the shared
	// in-memory database alive for the storage lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates an in-memory SQLite storage instance.
func NewSQLiteStorage() (*SQLiteStorage, error) {
	db, err := openDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close discards all stored state.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Entity operations

func (s *SQLiteStorage) CreateEntity(ctx context.Context, entityID string) error {
	if entityID == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (id) VALUES (?)
		ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
	`, entityID)
	if err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) EntityExists(ctx context.Context, entityID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM entities WHERE id = ?", entityID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check entity: %w", err)
	}
	return true, nil
}

func (s *SQLiteStorage) ListEntities(ctx context.Context) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, updated_at FROM entities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *SQLiteStorage) RemoveEntity(ctx context.Context, entityID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", entityID)
	if err != nil {
		return fmt.Errorf("failed to remove entity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Chunk operations

func (s *SQLiteStorage) AppendChunks(ctx context.Context, chunks []types.Chunk) ([]types.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]types.Chunk, len(chunks))
	for i, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (entity_id, content, content_hash, start_offset, end_offset)
			VALUES (?, ?, ?, ?, ?)
		`, chunk.EntityID, chunk.Content, chunk.ContentHash[:], chunk.StartOffset, chunk.EndOffset)
		if err != nil {
			return nil, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}

		chunk.ID = id
		stored[i] = chunk
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chunks: %w", err)
	}
	return stored, nil
}

// ListChunks returns an entity's chunks in document order (insertion order,
// which within one source text equals ascending start offset).
func (s *SQLiteStorage) ListChunks(ctx context.Context, entityID string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, content, content_hash, start_offset, end_offset
		FROM chunks WHERE entity_id = ? ORDER BY id
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) CountChunks(ctx context.Context, entityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE entity_id = ?", entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (types.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_id, content, content_hash, start_offset, end_offset
		FROM chunks WHERE id = ?
	`, chunkID)

	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return types.Chunk{}, ErrNotFound
	}
	if err != nil {
		return types.Chunk{}, fmt.Errorf("failed to get chunk: %w", err)
	}
	return chunk, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row scanner) (types.Chunk, error) {
	var chunk types.Chunk
	var hash []byte

	if err := row.Scan(&chunk.ID, &chunk.EntityID, &chunk.Content, &hash,
		&chunk.StartOffset, &chunk.EndOffset); err != nil {
		return types.Chunk{}, err
	}

	copy(chunk.ContentHash[:], hash)
	return chunk, nil
}

// Embedding operations

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, emb *Embedding) error {
	if emb == nil || len(emb.Vector) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`, emb.ChunkID, serializeVector(emb.Vector), len(emb.Vector), emb.Provider, emb.Model)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	var blob []byte
	emb := &Embedding{ChunkID: chunkID}

	err := s.db.QueryRowContext(ctx, `
		SELECT vector, dimension, provider, model FROM embeddings WHERE chunk_id = ?
	`, chunkID).Scan(&blob, &emb.Dimension, &emb.Provider, &emb.Model)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	emb.Vector = deserializeVector(blob)
	return emb, nil
}

func (s *SQLiteStorage) CountEmbeddings(ctx context.Context, entityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e
		INNER JOIN chunks c ON e.chunk_id = c.id
		WHERE c.entity_id = ?
	`, entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}
