package contentcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// deriveKey builds a stable cache key from a category and its parameters.
// Parameters are normalized by sorting on name so insertion order never
// changes the key. The nonce, when non-empty, scopes the key to one cache
// instance.
func deriveKey(category string, params map[string]string, nonce string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var data strings.Builder
	data.WriteString(category)
	for _, name := range names {
		data.WriteString("|")
		data.WriteString(name)
		data.WriteString("=")
		data.WriteString(params[name])
	}
	if nonce != "" {
		data.WriteString("|session:")
		data.WriteString(nonce)
	}

	sum := sha256.Sum256([]byte(data.String()))
	return hex.EncodeToString(sum[:])
}
