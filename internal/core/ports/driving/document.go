package driving

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// DocumentService manages the caller's indexed documents
type DocumentService interface {
	// List retrieves the caller's documents with chunk counts
	List(ctx context.Context, scope domain.Scope) ([]*domain.Document, error)

	// Stats aggregates the caller's corpus
	Stats(ctx context.Context, scope domain.Scope) (*domain.CorpusStats, error)

	// DeleteBySource removes a document by source filename from both
	// indexes and the registry
	DeleteBySource(ctx context.Context, scope domain.Scope, source string) error
}
