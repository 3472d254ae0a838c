package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Entry is one memoized lookup result.
type Entry struct {
	Value     any
	Timestamp time.Time
}

// Fresh reports whether the entry is still usable under the given TTL.
// A non-positive TTL disables caching entirely.
func (e Entry) Fresh(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return time.Since(e.Timestamp) < ttl
}

// Key generates a cache key from a search query, normalized so that
// queries differing only in case or surrounding whitespace share an entry.
func Key(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("%x", h)
}
