package cache

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache memoizes expensive read-side query results (corpus statistics, case
// list pages) for a short TTL. Ingestion runs are batch jobs, so slightly
// stale reads are acceptable.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Delete(key string)
	Clear()
	Stats() Metrics
}

type Metrics struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Size       int       `json:"size"`
	LastAccess time.Time `json:"last_access"`
}

type queryCache struct {
	cache   *gocache.Cache
	mu      sync.Mutex
	metrics Metrics
}

func New(ttl time.Duration) Cache {
	return &queryCache{
		cache: gocache.New(ttl, ttl*2),
	}
}

func (c *queryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.LastAccess = time.Now()

	if value, found := c.cache.Get(key); found {
		c.metrics.Hits++
		return value, true
	}

	c.metrics.Misses++
	return nil, false
}

func (c *queryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Set(key, value, gocache.DefaultExpiration)
}

func (c *queryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Delete(key)
}

func (c *queryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.metrics = Metrics{}
}

func (c *queryCache) Stats() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.Size = c.cache.ItemCount()
	return c.metrics
}

// StatsKey is the cache key for the corpus statistics query.
func StatsKey() string {
	return "cases:stats"
}

// ListKey is the cache key for one page of the case list.
func ListKey(page, limit int) string {
	return fmt.Sprintf("cases:list:%d:%d", page, limit)
}
