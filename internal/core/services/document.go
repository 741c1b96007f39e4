package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	docs     driven.DocumentStore
	chunks   driven.ChunkStore
	vectors  driven.VectorIndex
	keywords driven.KeywordIndex
	logger   *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docs driven.DocumentStore,
	chunks driven.ChunkStore,
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
	logger *slog.Logger,
) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		docs:     docs,
		chunks:   chunks,
		vectors:  vectors,
		keywords: keywords,
		logger:   logger,
	}
}

// List retrieves the caller's documents with chunk counts
func (s *documentService) List(ctx context.Context, scope domain.Scope) ([]*domain.Document, error) {
	return s.docs.List(ctx, scope)
}

// Stats aggregates the caller's corpus
func (s *documentService) Stats(ctx context.Context, scope domain.Scope) (*domain.CorpusStats, error) {
	return s.docs.Stats(ctx, scope)
}

// DeleteBySource removes a document by source filename from both indexes
// and the registry. Before touching anything it cross-checks that the
// stored chunks agree with the registry about who owns the document; a
// disagreement means the stores have diverged and deleting would destroy
// the evidence, so the operation fails instead.
func (s *documentService) DeleteBySource(ctx context.Context, scope domain.Scope, source string) error {
	doc, err := s.docs.GetBySource(ctx, scope, source)
	if err != nil {
		return err
	}

	chunks, err := s.chunks.GetByDocument(ctx, scope, doc.ID)
	if err != nil {
		return fmt.Errorf("loading chunks for %s: %w", source, err)
	}
	for _, c := range chunks {
		if c.UserID != doc.UserID {
			s.logger.Error("chunk owner disagrees with document registry",
				"chunk_id", c.ID,
				"chunk_owner", c.UserID,
				"document_owner", doc.UserID)
			return domain.ErrConsistencyViolation
		}
	}

	if err := s.vectors.DeleteByDocument(ctx, scope, doc.ID); err != nil {
		return fmt.Errorf("semantic delete: %w", err)
	}
	if err := s.keywords.DeleteByDocument(ctx, scope, doc.ID); err != nil {
		return fmt.Errorf("lexical delete: %w", err)
	}
	if err := s.chunks.DeleteByDocument(ctx, scope, doc.ID); err != nil {
		return fmt.Errorf("chunk store delete: %w", err)
	}
	if err := s.docs.Delete(ctx, scope, doc.ID); err != nil {
		return fmt.Errorf("registry delete: %w", err)
	}

	s.logger.Info("document deleted", "source", source, "document_id", doc.ID)
	return nil
}
