package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// VectorIndex handles semantic similarity search (HNSW).
// Every method takes a Scope: filtering by owner happens inside the index,
// never in the caller, so an unfiltered query is impossible to express.
type VectorIndex interface {
	// IndexBatch adds embedded chunks to the caller's index
	IndexBatch(ctx context.Context, scope domain.Scope, chunks []*domain.Chunk) error

	// Search finds the k nearest chunks by cosine similarity
	Search(ctx context.Context, scope domain.Scope, embedding []float32, k int) ([]domain.VectorMatch, error)

	// DeleteByDocument removes all vectors for a document
	DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error

	// Count returns the number of vectors in the caller's index
	Count(ctx context.Context, scope domain.Scope) (int, error)

	// Ping verifies the index is available
	Ping(ctx context.Context) error

	// Close flushes and releases the index
	Close() error
}
