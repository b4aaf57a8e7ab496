package llm

import (
	"context"

	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
)

// DefaultCacheMaxBytes bounds the memory used by cached vectors
const DefaultCacheMaxBytes = 64 << 20

// CachedEmbedder memoizes another Embedder by input text. Retrieval
// embeds the same query again and again within a conversation, and
// provider calls are the slow part of a chat turn.
type CachedEmbedder struct {
	base  interfaces.Embedder
	cache *ristretto.Cache
}

// NewCachedEmbedder wraps base with a cache bounded by maxBytes
func NewCachedEmbedder(base interfaces.Embedder, maxBytes int64) (*CachedEmbedder, error) {
	if base == nil {
		return nil, goerr.New("embedder is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultCacheMaxBytes
	}

	// One vector costs dimension*4 bytes; ten counters per expected item.
	itemCost := int64(base.Dimension()*4 + 1)
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: max(maxBytes/itemCost*10, 1000),
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding cache")
	}

	return &CachedEmbedder{
		base:  base,
		cache: cache,
	}, nil
}

// Embed returns the cached vector or computes and caches it. Callers
// must not mutate the returned slice.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.base.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, vec, int64(len(vec)*4+1))
	e.cache.Wait()
	return vec, nil
}

// Dimension returns the dimension of the wrapped embedder
func (e *CachedEmbedder) Dimension() int {
	return e.base.Dimension()
}

// Close stops the cache goroutines
func (e *CachedEmbedder) Close() {
	e.cache.Close()
}
