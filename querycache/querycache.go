// Package querycache is an optional, bounded memoization layer over
// AttributeIndex.GetIDs for single-value point queries. It is a pure
// performance layer: IndexSet's query results are identical whether or
// not a Cache is installed (size 0 disables it), so nothing in the
// index's correctness may depend on it.
//
// It is adapted from knative-pkg/hash.BucketSet's use of
// github.com/hashicorp/golang-lru: that type answers "what bucket does
// key X belong to" from an LRU-cached consistent-hash lookup; here the
// same cache-aside idiom answers "what object ids have attribute value
// X", invalidated per attribute whenever a mutation touches it.
package querycache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/manimino/filtered/internal/idset"
)

// Cache memoizes GetIDs(attr, value) results. A nil *Cache is valid and
// behaves as if disabled — every method is a no-op / always-miss, so
// callers can hold a nil Cache without branching on whether caching
// was requested.
type Cache struct {
	lru      *lru.Cache
	versions map[string]int64
}

// New returns a Cache holding up to size entries. size <= 0 disables
// caching: New returns nil, and all of nil's methods below are safe
// no-ops.
func New(size int) *Cache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New(size)
	if err != nil {
		// Only returns an error for size <= 0, already handled above.
		return nil
	}
	return &Cache{lru: c, versions: make(map[string]int64)}
}

func (c *Cache) key(attr string, value any) string {
	return fmt.Sprintf("%d|%s|%T|%#v", c.versions[attr], attr, value, value)
}

// Get returns the cached id-set for (attr, value), if present and not
// invalidated since it was cached.
func (c *Cache) Get(attr string, value any) (idset.Set, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(c.key(attr, value))
	if !ok {
		return nil, false
	}
	return v.(idset.Set), true
}

// Put records the id-set computed for (attr, value).
func (c *Cache) Put(attr string, value any, ids idset.Set) {
	if c == nil {
		return
	}
	c.lru.Add(c.key(attr, value), ids)
}

// Invalidate drops every cached entry for attr. It's cheap (a version
// bump, not a scan): old entries simply become unreachable keys and
// age out of the LRU on their own.
func (c *Cache) Invalidate(attr string) {
	if c == nil {
		return
	}
	c.versions[attr]++
}

// Reset invalidates every attribute at once, used by IndexSet.Clear.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.lru.Purge()
	c.versions = make(map[string]int64)
}
