package ego

import lru "github.com/hashicorp/golang-lru/v2"

// Cache is an LRU of entry id -> previously computed enhancement, keyed so
// that a cache hit short-circuits the whole ego-graph pipeline.
type Cache struct {
	inner *lru.Cache[string, *Result]
}

// NewCache constructs a bounded LRU cache of the given capacity.
func NewCache(capacity int) (*Cache, error) {
	inner, err := lru.New[string, *Result](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns a cached enhancement result for id, if present.
func (c *Cache) Get(id string) (*Result, bool) {
	return c.inner.Get(id)
}

// Put stores an enhancement result for id, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(id string, r *Result) {
	c.inner.Add(id, r)
}

// Invalidate removes a cached entry, used when its embedding changes.
func (c *Cache) Invalidate(id string) {
	c.inner.Remove(id)
}
