// Package storage holds entities, their text chunks, and chunk embeddings
// in an in-memory SQLite database.
//
// Nothing persists across process restarts: each instance opens a uniquely
// named in-memory database, so storage state lives exactly as long as its
// owner (the context manager). SQLite is used for its indexing and
// transactional appends, not for durability.
//
// # Build Modes
//
// Two SQLite drivers are supported, chosen at build time:
//
//	CGO_ENABLED=1 go build -tags sqlite_vec ./...   (mattn/go-sqlite3)
//	CGO_ENABLED=0 go build ./...                    (modernc.org/sqlite, default)
//
// Vector similarity search always runs as a Go-side cosine scan over the
// stored BLOB vectors; the cgo build simply uses the faster driver for row
// traffic.
//
// # Schema
//
// Three tables: entities (one row per logical corpus), chunks (offset-
// tracked text slices, document-ordered by insertion), embeddings (one
// float32 BLOB per chunk, little-endian). Chunks are append-only; the only
// delete path removes a whole entity.
package storage
