package ai

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Ensure CachedEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*CachedEmbedding)(nil)

// DefaultQueryCacheSize bounds the number of cached query embeddings
const DefaultQueryCacheSize = 1024

// CachedEmbedding decorates an EmbeddingService with an LRU cache for
// query embeddings. Repeated questions skip the provider round trip.
// Document embedding (Embed) is not cached: ingest batches are unlikely
// to repeat and would evict useful query entries.
type CachedEmbedding struct {
	inner driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedding wraps an embedding service with a query cache
func NewCachedEmbedding(inner driven.EmbeddingService, size int) (*CachedEmbedding, error) {
	if size <= 0 {
		size = DefaultQueryCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedding{inner: inner, cache: cache}, nil
}

// Embed passes through to the underlying service
func (c *CachedEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.Embed(ctx, texts)
}

// EmbedQuery returns a cached embedding when the same query was seen before
func (c *CachedEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if embedding, ok := c.cache.Get(query); ok {
		return embedding, nil
	}

	embedding, err := c.inner.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	c.cache.Add(query, embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension size
func (c *CachedEmbedding) Dimensions() int {
	return c.inner.Dimensions()
}

// Model returns the model name being used
func (c *CachedEmbedding) Model() string {
	return c.inner.Model()
}

// HealthCheck verifies the underlying service is available
func (c *CachedEmbedding) HealthCheck(ctx context.Context) error {
	return c.inner.HealthCheck(ctx)
}

// Close purges the cache and closes the underlying service
func (c *CachedEmbedding) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
