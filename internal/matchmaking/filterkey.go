// Package matchmaking pairs waiting participants that share a filter key.
// It owns the pop-and-pair critical section and the per-participant record
// of which queue a participant last joined.
package matchmaking

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// KeyAll is the reserved filter key participants with no filters fall into.
const KeyAll = "all"

// FilterKey computes the canonical compatibility bucket for a filter set.
// Attributes are serialized as sorted length-prefixed pairs and hashed, so
// the key is a pure, order-independent function of the filters and no two
// distinct filter sets share an encoding — attribute names and values may
// themselves contain the delimiter characters. An empty or nil filter set
// normalizes to the reserved "all" key.
func FilterKey(filters map[string]string) string {
	if len(filters) == 0 {
		return KeyAll
	}

	pairs := make([]string, 0, len(filters))
	for k, v := range filters {
		// Length prefixes pin the span of each component, so "=" or ","
		// inside a name or value cannot shift the pair boundaries.
		pairs = append(pairs, fmt.Sprintf("%d:%s=%d:%s", len(k), k, len(v), v))
	}
	sort.Strings(pairs)

	h := sha256.Sum256([]byte(strings.Join(pairs, ",")))
	return fmt.Sprintf("%x", h[:8]) // 16-char hex prefix
}
