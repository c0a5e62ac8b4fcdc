package tiles

import (
	"image"
	"sync"
)

// ImageCache keeps decoded tile images, dropping everything once it
// grows past limit. A zero limit never evicts.
type ImageCache struct {
	cache map[string]image.Image
	limit int
	mu    sync.RWMutex
}

func NewImageCache(limit int) *ImageCache {
	return &ImageCache{
		cache: make(map[string]image.Image),
		limit: limit,
	}
}

func (c *ImageCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.cache[key]
	return val, ok
}

func (c *ImageCache) Set(key string, value interface{}) {
	img, ok := value.(image.Image)
	if !ok {
		return
	}
	c.mu.Lock()
	if c.limit > 0 && len(c.cache) >= c.limit {
		c.cache = make(map[string]image.Image)
	}
	c.cache[key] = img
	c.mu.Unlock()
}

func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]image.Image)
	c.mu.Unlock()
}

func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *ImageCache) GetType() CacheType {
	return CacheImage
}
