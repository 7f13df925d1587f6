// Package embedder generates vector embeddings for text chunks and queries.
//
// The embedding provider is an external collaborator: it may be absent
// entirely or fail per call. Failures here are ordinary errors; the
// retrieval layer translates them into its lexical fallback rather than
// surfacing them to top-level callers.
//
// # Providers
//
//   - openai: OpenAI embeddings API over HTTP with exponential-backoff retry
//   - local: deterministic hash-derived vectors, no network (dev and tests)
//
// Provider selection is explicit via New(Config) or environment-driven via
// NewFromEnv (GAMECTX_EMBEDDING_PROVIDER, OPENAI_API_KEY).
//
// # Caching
//
// Embeddings are cached by SHA-256 content hash in a bounded LRU, so
// re-indexing unchanged text and repeated queries never re-call the
// provider. Cache reads return deep copies; callers may mutate the vectors
// they receive.
package embedder
