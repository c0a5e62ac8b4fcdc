package tiles

import (
	"sync"

	"gioui.org/op/paint"
)

// ImageOpCache holds paint.ImageOp values so a tile is uploaded once per
// key instead of once per frame.
type ImageOpCache struct {
	cache map[string]paint.ImageOp
	limit int
	mu    sync.RWMutex
}

func NewImageOpCache(limit int) *ImageOpCache {
	return &ImageOpCache{
		cache: make(map[string]paint.ImageOp),
		limit: limit,
	}
}

func (c *ImageOpCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.cache[key]
	return val, ok
}

// Op is the typed variant of Get.
func (c *ImageOpCache) Op(key string) (paint.ImageOp, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.cache[key]
	return val, ok
}

func (c *ImageOpCache) Set(key string, value interface{}) {
	imageOp, ok := value.(paint.ImageOp)
	if !ok {
		return
	}
	c.mu.Lock()
	if c.limit > 0 && len(c.cache) >= c.limit {
		c.cache = make(map[string]paint.ImageOp)
	}
	c.cache[key] = imageOp
	c.mu.Unlock()
}

func (c *ImageOpCache) Delete(key string) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}

func (c *ImageOpCache) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]paint.ImageOp)
	c.mu.Unlock()
}

func (c *ImageOpCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *ImageOpCache) GetType() CacheType {
	return CacheImageOp
}
