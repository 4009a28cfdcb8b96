package hierarchy

import (
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/merelin/diffa-sub000/hash"
)

// EntityIDDepth is the depth of the entity id hierarchy.
const EntityIDDepth = 3

// DefaultIDCacheSize is the number of id digests kept by default.
const DefaultIDCacheSize = 1 << 14

// EntityIDHasher computes hex digests of entity ids.
// It is safe for concurrent use.
type EntityIDHasher struct {
	pool  *hash.Pool
	cache *lru.Cache[string, string]
}

// NewEntityIDHasher creates a hasher that remembers up to cacheSize digests.
func NewEntityIDHasher(fn hash.Func, cacheSize int) *EntityIDHasher {
	if fn == nil {
		fn = hash.Default
	}
	if cacheSize <= 0 {
		cacheSize = DefaultIDCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		panic("BUG: create id digest cache: " + err.Error())
	}
	return &EntityIDHasher{pool: hash.NewPool(fn), cache: cache}
}

// Hex returns lowercase hex digest of id.
func (h *EntityIDHasher) Hex(id string) string {
	if v, ok := h.cache.Get(id); ok {
		return v
	}
	hasher := h.pool.Get()
	hasher.Write([]byte(id))
	v := hex.EncodeToString(hasher.Sum(nil))
	h.pool.Put(hasher)
	h.cache.Add(id, v)
	return v
}
