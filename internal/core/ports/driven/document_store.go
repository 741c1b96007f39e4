package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// DocumentStore handles the document registry (PostgreSQL). A document row
// is written only after both indexes accepted all of its chunks, so the
// registry never lists half-ingested documents.
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves one of the caller's documents by ID
	Get(ctx context.Context, scope domain.Scope, id string) (*domain.Document, error)

	// GetBySource retrieves one of the caller's documents by source filename
	GetBySource(ctx context.Context, scope domain.Scope, source string) (*domain.Document, error)

	// List retrieves all of the caller's documents
	List(ctx context.Context, scope domain.Scope) ([]*domain.Document, error)

	// Delete deletes one of the caller's documents
	Delete(ctx context.Context, scope domain.Scope, id string) error

	// Stats aggregates chunk counts across the caller's documents
	Stats(ctx context.Context, scope domain.Scope) (*domain.CorpusStats, error)
}

// ChunkStore handles chunk text persistence (PostgreSQL). The lexical index
// carries its own copy of the text; this store is the system of record used
// to hydrate semantic-only hits and to cross-check chunk ownership.
type ChunkStore interface {
	// SaveBatch saves multiple chunks in a transaction
	SaveBatch(ctx context.Context, chunks []*domain.Chunk) error

	// GetByIDs retrieves the caller's chunks by ID. Missing IDs are
	// omitted, not errors.
	GetByIDs(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Chunk, error)

	// GetByDocument retrieves all chunks for one of the caller's documents
	GetByDocument(ctx context.Context, scope domain.Scope, documentID string) ([]*domain.Chunk, error)

	// DeleteByDocument deletes all chunks for a document
	DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error
}
