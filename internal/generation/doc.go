// Package generation defines the text-generation collaborator consumed by
// the content cache.
//
// Generation is blocking, I/O-bound, and may fail transiently (rate limits,
// network). Failures always propagate to the caller: the content cache never
// memoizes a failed generation, and retrying is the caller's decision beyond
// the provider's own short backoff.
package generation
