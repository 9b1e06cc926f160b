package pipeline

import "sync"

const defaultDedupLimit = 100

// DedupCache is a bounded record of recently emitted payload signatures. The
// key is the exact formatted output text, not the raw input: two different
// raw items producing the same formatted payload count as duplicates. When
// the bound is exceeded the single oldest entry by insertion order is
// evicted.
type DedupCache struct {
	mu    sync.Mutex
	limit int
	seen  map[string]struct{}
	order []string
}

// NewDedupCache builds a cache bounded at limit entries (default 100).
func NewDedupCache(limit int) *DedupCache {
	if limit <= 0 {
		limit = defaultDedupLimit
	}
	return &DedupCache{limit: limit, seen: map[string]struct{}{}}
}

// Admit returns false when the signature was already emitted; otherwise it
// records the signature and returns true, evicting the oldest entry if the
// bound is exceeded.
func (c *DedupCache) Admit(signature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[signature]; dup {
		return false
	}

	c.seen[signature] = struct{}{}
	c.order = append(c.order, signature)
	if len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
	return true
}

// Len reports the current number of recorded signatures.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Clear drops every recorded signature and returns how many were held.
func (c *DedupCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.order)
	c.seen = map[string]struct{}{}
	c.order = nil
	return count
}
