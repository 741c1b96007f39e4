package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// KeywordIndex handles lexical search (BM25).
// Scope filtering is applied inside the index as part of the query, not by
// post-filtering results.
type KeywordIndex interface {
	// IndexBatch adds chunks to the index with their raw text
	IndexBatch(ctx context.Context, scope domain.Scope, chunks []*domain.Chunk) error

	// Search runs a BM25 query over the caller's chunks
	Search(ctx context.Context, scope domain.Scope, query string, k int) ([]domain.KeywordMatch, error)

	// DeleteByDocument removes all chunks for a document
	DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error

	// Count returns the number of chunks indexed for the caller
	Count(ctx context.Context, scope domain.Scope) (int, error)

	// Ping verifies the index is available
	Ping(ctx context.Context) error

	// Close flushes and releases the index
	Close() error
}
