// Package cache provides a bounded in-memory key/value store with LRU
// eviction and per-entry time-to-live.
//
// The store has no knowledge of what its values mean; higher layers such as
// the content cache supply keying semantics. Capacity is enforced by the
// underlying LRU list: inserting into a full store evicts the least recently
// used entry, so size never exceeds the configured maximum.
//
// # Expiry
//
// Each entry may carry a TTL. An expired entry is observably absent the
// moment its deadline passes: Get reports a miss and lazily removes it.
// An optional background sweep (StartSweep) purges expired entries that are
// never read again; the sweep takes the lock per key, never for the whole
// scan.
//
// # Usage
//
//	store, err := cache.New[string](100)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store.Put("intro:marlow", introText, 2*time.Hour)
//	if v, ok := store.Get("intro:marlow"); ok {
//	    fmt.Println(v)
//	}
//
// Ordinary misses and expiry are represented by the ok=false return, never
// by an error.
package cache
