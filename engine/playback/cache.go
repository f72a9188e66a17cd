package playback

import (
	"container/list"
	"sync"
	"time"

	"github.com/rae1st/oscillate/engine"
)

// Metadata is the cached per-track information keyed by the track's
// canonical key (webpage URL, else audio URL, else title).
type Metadata struct {
	Title         string
	AudioURL      string
	ResolvedURL   string
	Duration      int
	ContentType   string
	ContentLength int64
	CachedAt      time.Time
}

// Cache is a bounded LRU over track metadata. Reads refresh recency;
// insertion past capacity evicts the least recently used entry.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	key  string
	meta Metadata
}

// NewCache creates a cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 200
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get looks up metadata and marks the entry most recently used.
func (c *Cache) Get(key string) (Metadata, bool) {
	if key == "" {
		return Metadata{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return Metadata{}, false
	}
	c.ll.MoveToFront(elem)
	return elem.Value.(*cacheEntry).meta, true
}

// GetTrack looks up metadata by a track's canonical key.
func (c *Cache) GetTrack(track *engine.Track) (Metadata, bool) {
	if track == nil {
		return Metadata{}, false
	}
	return c.Get(track.CacheKey())
}

// Put inserts or refreshes an entry, evicting the oldest when full.
func (c *Cache) Put(key string, meta Metadata) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.ll.MoveToFront(elem)
		elem.Value.(*cacheEntry).meta = meta
		return
	}

	elem := c.ll.PushFront(&cacheEntry{key: key, meta: meta})
	c.items[key] = elem

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity returns the configured bound.
func (c *Cache) Capacity() int {
	return c.capacity
}
