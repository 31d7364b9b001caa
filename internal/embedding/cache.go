package embedding

import (
	"container/list"
	"sync"

	"github.com/minio/highwayhash"
)

// cacheHashKey seeds the text digest. It only needs to be fixed, not secret.
var cacheHashKey = []byte("umekomi-embedding-cache-key-0001")

type cacheKey [highwayhash.Size]byte

func keyOf(text string) cacheKey {
	return highwayhash.Sum([]byte(text), cacheHashKey)
}

// EmbeddingCache is an LRU cache for embeddings keyed by a HighwayHash-256
// digest of the text, so long inputs are not retained.
// A cache with capacity <= 0 stores nothing.
type EmbeddingCache struct {
	capacity int
	cache    map[cacheKey]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   cacheKey
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[cacheKey]*list.Element),
		lru:      list.New(),
	}
}

// Get returns a copy of the cached embedding for text if present.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	if c.capacity <= 0 {
		return nil, false
	}
	key := keyOf(text)
	// MoveToFront mutates the list, so a read still takes the write lock.
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return cloneVector(elem.Value.(*cacheEntry).value), true
	}
	return nil, false
}

// Set stores a copy of the embedding for text, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(text string, value []float32) {
	if c.capacity <= 0 {
		return
	}
	key := keyOf(text)
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = cloneVector(value)
		return
	}

	entry := &cacheEntry{key: key, value: cloneVector(value)}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
