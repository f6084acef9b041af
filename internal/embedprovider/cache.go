package embedprovider

import (
	"context"
	"database/sql"
	"time"

	"github.com/dotcommander/memengine/internal/store"
	"github.com/dotcommander/memengine/pkg/memcache"
)

// DefaultCacheTTLDays is the write-through cache entry lifetime, per
// spec.md section 6.4's embedding_cache_ttl_days default.
const DefaultCacheTTLDays = 7

// CachedProvider wraps a Provider with a write-through cache: an in-process
// L1 (pkg/memcache) in front of the durable L2 (the store's embedding_cache
// table), both keyed by sha256(text || model_id || dims) per spec.md
// section 4.2.
type CachedProvider struct {
	inner   Provider
	db      *sql.DB
	l1      *memcache.Cache
	ttlDays int
}

// NewCached wraps inner with a two-level write-through cache. db may be nil,
// in which case only the in-process L1 is used (e.g. in tests).
func NewCached(inner Provider, db *sql.DB) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		db:      db,
		l1:      memcache.New(DefaultCacheTTLDays*24*time.Hour, 10000),
		ttlDays: DefaultCacheTTLDays,
	}
}

// Embed implements Provider, consulting the cache before calling inner.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := memcache.Key(text, c.inner.ModelID(), c.inner.Dimensions())

	if entry, ok := c.l1.Get(key); ok {
		return entry.Vector, nil
	}
	if c.db != nil {
		if vec, modelID, ok, err := store.EmbeddingCacheGet(c.db, key, c.ttlDays); err == nil && ok && modelID == c.inner.ModelID() {
			c.l1.Put(key, vec, modelID)
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.l1.Put(key, vec, c.inner.ModelID())
	if c.db != nil {
		_ = store.EmbeddingCachePut(c.db, key, c.inner.ModelID(), c.inner.Dimensions(), vec)
	}
	return vec, nil
}

// EmbedBatch implements Provider. Cached entries are served directly; the
// remainder is sent to inner in one batch call where possible, falling back
// to serial Embed calls if inner has no efficient batch path (the provider
// itself decides that; this layer always calls EmbedBatch once for the
// miss set).
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := memcache.Key(t, c.inner.ModelID(), c.inner.Dimensions())
		if entry, ok := c.l1.Get(key); ok {
			out[i] = entry.Vector
			continue
		}
		if c.db != nil {
			if vec, modelID, ok, err := store.EmbeddingCacheGet(c.db, key, c.ttlDays); err == nil && ok && modelID == c.inner.ModelID() {
				out[i] = vec
				c.l1.Put(key, vec, modelID)
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		key := memcache.Key(texts[i], c.inner.ModelID(), c.inner.Dimensions())
		c.l1.Put(key, vecs[j], c.inner.ModelID())
		if c.db != nil {
			_ = store.EmbeddingCachePut(c.db, key, c.inner.ModelID(), c.inner.Dimensions(), vecs[j])
		}
	}
	return out, nil
}

// Dimensions implements Provider.
func (c *CachedProvider) Dimensions() int { return c.inner.Dimensions() }

// ModelID implements Provider.
func (c *CachedProvider) ModelID() string { return c.inner.ModelID() }

// PruneCache deletes entries older than the configured TTL from the durable
// cache. Called periodically (e.g. by a maintenance command), never on the
// embed hot path.
func (c *CachedProvider) PruneCache() (int64, error) {
	if c.db == nil {
		return 0, nil
	}
	return store.PruneEmbeddingCache(c.db, c.ttlDays)
}
