package tiles

type CacheType int

const (
	CacheImage CacheType = iota
	CacheImageOp
)

// Cache stores decoded tiles or their GPU-ready ops keyed by GetTileKey.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Clear()
	Len() int
	GetType() CacheType
}
