package tiles

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olablt/wander/metrics"
	"github.com/olablt/wander/tiles/worker"
)

const retryDelay = 30 * time.Second

type TileProvider interface {
	GetTile(ctx context.Context, tile Tile) (image.Image, error)
}

// TileManager serves one map layer: a provider behind a cache, with
// background loading through a worker pool.
type TileManager struct {
	name     string
	cache    Cache
	provider TileProvider
	pool     *worker.Pool
	group    singleflight.Group
	logger   *slog.Logger

	mu       sync.Mutex
	loading  map[string]bool
	failed   map[string]time.Time
	fallback map[string]image.Image
	onLoad   func()
	now      func() time.Time
}

func NewTileManager(name string, provider TileProvider, pool *worker.Pool, cacheLimit int, logger *slog.Logger) *TileManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TileManager{
		name:     name,
		cache:    NewImageCache(cacheLimit),
		provider: provider,
		pool:     pool,
		logger:   logger.With("layer", name),
		loading:  make(map[string]bool),
		failed:   make(map[string]time.Time),
		fallback: make(map[string]image.Image),
		now:      time.Now,
	}
}

func (tm *TileManager) Name() string {
	return tm.name
}

func (tm *TileManager) GetCache() Cache {
	return tm.cache
}

// SetOnLoadCallback registers a function called from the loading goroutine
// whenever a tile lands in the cache.
func (tm *TileManager) SetOnLoadCallback(callback func()) {
	tm.mu.Lock()
	tm.onLoad = callback
	tm.mu.Unlock()
}

// GetTileKey returns a unique string key for a tile
func GetTileKey(tile Tile) string {
	return fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)
}

// Peek returns a cached tile without loading. While the real tile is
// unavailable a FallbackImage is returned instead.
func (tm *TileManager) Peek(tile Tile) (image.Image, bool) {
	key := GetTileKey(tile)
	if cached, ok := tm.cache.Get(key); ok {
		if img, ok := cached.(image.Image); ok {
			metrics.TileCacheHits.WithLabelValues(tm.name).Inc()
			return img, true
		}
	}
	tm.mu.Lock()
	img, ok := tm.fallback[key]
	tm.mu.Unlock()
	return img, ok
}

// GetTile loads a tile, blocking until it is cached or the provider fails.
// Concurrent calls for the same tile share one provider request.
func (tm *TileManager) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	key := GetTileKey(tile)
	if cached, ok := tm.cache.Get(key); ok {
		if img, ok := cached.(image.Image); ok {
			metrics.TileCacheHits.WithLabelValues(tm.name).Inc()
			return img, nil
		}
	}
	metrics.TileCacheMisses.WithLabelValues(tm.name).Inc()

	v, err, _ := tm.group.Do(key, func() (interface{}, error) {
		img, err := tm.provider.GetTile(ctx, tile)
		if err != nil {
			return nil, err
		}
		tm.store(key, img)
		return img, nil
	})
	if err != nil {
		tm.mu.Lock()
		tm.failed[key] = tm.now().Add(retryDelay)
		tm.mu.Unlock()
		return nil, fmt.Errorf("load tile %s: %w", key, err)
	}
	return v.(image.Image), nil
}

func (tm *TileManager) store(key string, img image.Image) {
	tm.mu.Lock()
	if fb, ok := img.(FallbackImage); ok {
		tm.fallback[key] = fb
		tm.failed[key] = tm.now().Add(retryDelay)
	} else {
		delete(tm.fallback, key)
		delete(tm.failed, key)
	}
	onLoad := tm.onLoad
	tm.mu.Unlock()

	if _, ok := img.(FallbackImage); !ok {
		tm.cache.Set(key, img)
	}
	if onLoad != nil {
		onLoad()
	}
}

// Prefetch schedules a background load unless the tile is cached, already
// loading, or failed recently.
func (tm *TileManager) Prefetch(ctx context.Context, tile Tile) {
	key := GetTileKey(tile)
	if _, ok := tm.cache.Get(key); ok {
		return
	}

	tm.mu.Lock()
	if tm.loading[key] {
		tm.mu.Unlock()
		return
	}
	if until, ok := tm.failed[key]; ok && tm.now().Before(until) {
		tm.mu.Unlock()
		return
	}
	tm.loading[key] = true
	tm.mu.Unlock()

	submitted := tm.pool.Submit(worker.Task{
		Ctx: ctx,
		Work: func(ctx context.Context) error {
			_, err := tm.GetTile(ctx, tile)
			return err
		},
		Done: func(err error) {
			if err != nil {
				tm.logger.Debug("tile load failed", "tile", key, "error", err)
			}
			tm.mu.Lock()
			delete(tm.loading, key)
			tm.mu.Unlock()
		},
	})
	if !submitted {
		tm.mu.Lock()
		delete(tm.loading, key)
		tm.mu.Unlock()
	}
}
