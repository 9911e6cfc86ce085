package routing

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"hcanvas/geometry"
)

// DefaultCacheSize bounds the path cache of a router built with zero options.
const DefaultCacheSize = 1024

// cacheKey identifies one search: its ports and a hash of the obstacle set.
type cacheKey struct {
	start, end geometry.Point
	obstacles  uint64
}

type cached struct {
	points []geometry.Point
	ok     bool
}

// PathCache stores searched paths so unchanged edges are not routed again
// when the scene is re-resolved. It is safe for concurrent use.
type PathCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cached
	order   []cacheKey // insertion order, oldest first
	maxSize int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewPathCache creates a cache holding at most maxSize paths.
func NewPathCache(maxSize int) *PathCache {
	return &PathCache{
		entries: make(map[cacheKey]cached),
		maxSize: max(maxSize, 1),
	}
}

// HashObstacles hashes an obstacle set and search window. Order matters;
// callers pass obstacles in scene order.
func HashObstacles(obstacles []geometry.Rect, window geometry.Rect) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 32)
	put := func(r geometry.Rect) {
		buf = buf[:0]
		for _, v := range [4]float64{r.X, r.Y, r.Width, r.Height} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		d.Write(buf)
	}
	put(window)
	for _, o := range obstacles {
		put(o)
	}
	return d.Sum64()
}

// Get returns a copy of the cached path between two ports.
func (c *PathCache) Get(start, end geometry.Point, hash uint64) ([]geometry.Point, bool, bool) {
	c.mu.RLock()
	e, found := c.entries[cacheKey{start, end, hash}]
	c.mu.RUnlock()
	if !found {
		c.misses.Add(1)
		return nil, false, false
	}
	c.hits.Add(1)
	return slices.Clone(e.points), e.ok, true
}

// Put stores a path, evicting the oldest entry when full. ok records whether
// the path came from the search or the fallback.
func (c *PathCache) Put(start, end geometry.Point, hash uint64, points []geometry.Point, ok bool) {
	key := cacheKey{start, end, hash}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.maxSize && len(c.order) > 0 {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
			c.evictions.Add(1)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = cached{points: slices.Clone(points), ok: ok}
}

// Clear drops every entry and resets the counters.
func (c *PathCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cached)
	c.order = nil
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// CacheStats is a snapshot of the cache counters.
type CacheStats struct {
	Hits, Misses, Evictions, Size int
}

// Stats returns the cache counters.
func (c *PathCache) Stats() CacheStats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{
		Hits:      int(c.hits.Load()),
		Misses:    int(c.misses.Load()),
		Evictions: int(c.evictions.Load()),
		Size:      size,
	}
}

func (c *PathCache) String() string {
	s := c.Stats()
	rate := 0.0
	if total := s.Hits + s.Misses; total > 0 {
		rate = float64(s.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("PathCache[size=%d/%d, hits=%d, misses=%d, hitRate=%.1f%%, evictions=%d]",
		s.Size, c.maxSize, s.Hits, s.Misses, rate, s.Evictions)
}
