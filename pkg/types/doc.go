// Package types provides shared type definitions for the gamecontext core.
//
// This package defines the domain types used across the cache, chunking, and
// retrieval components: text chunks with source offsets, scored retrieval
// results, and the statistics snapshots exposed to callers.
//
// # Core Types
//
// Chunk represents a bounded, offset-tracked slice of a longer source text,
// owned by one entity (a character, a storyline, any logical corpus):
//
//	chunk := types.Chunk{
//	    EntityID:    "victoria-blackwood",
//	    Content:     "Victoria spent her twenties in Prague...",
//	    StartOffset: 0,
//	    EndOffset:   500,
//	}
//
// The invariant EndOffset-StartOffset == len(Content) holds for every chunk
// produced by the chunker, and consecutive chunks for one entity overlap only
// at the configured boundary, with no gaps.
//
// ScoredChunk pairs a chunk with its retrieval relevance score. Results are
// ordered by descending score, ties broken by ascending StartOffset.
//
// # Statistics
//
// CacheStats, EntityStats, and ManagerStats are point-in-time snapshots; they
// are plain values and safe to retain after the source structure changes.
package types
