// Package contentcache memoizes expensive generated content behind a stable
// semantic key.
//
// A key is derived from a category ("intro", "narration", ...) plus a
// normalized parameter map, so callers never handle raw cache keys. The only
// read path is GetOrCompute: on a hit the generator is not invoked; on a miss
// the generator runs and a successful result is stored before being returned.
// A failed generation is never memoized.
//
// With Config.SessionScoped set, a per-instance nonce is mixed into every
// derived key, deliberately scoping cache identity to one session: identical
// (category, params) pairs still collide within the session but never across
// instances.
package contentcache
