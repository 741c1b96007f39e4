package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/custodia-labs/ragcore/internal/chunking"
	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Ensure ingestService implements IngestService
var _ driving.IngestService = (*ingestService)(nil)

// ingestService implements the IngestService interface.
// The pipeline is parse -> chunk -> embed -> dual write -> register. The
// document row is saved last, so the registry only ever lists documents
// whose chunks are fully present in both indexes.
type ingestService struct {
	parser   driven.DocumentParser
	chunker  *chunking.Chunker
	batcher  *Batcher
	writer   *DualWriter
	docs     driven.DocumentStore
	vectors  driven.VectorIndex
	keywords driven.KeywordIndex
	chunks   driven.ChunkStore
	tracer   driven.Tracer
	logger   *slog.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	parser driven.DocumentParser,
	chunker *chunking.Chunker,
	batcher *Batcher,
	writer *DualWriter,
	docs driven.DocumentStore,
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
	chunks driven.ChunkStore,
	tracer driven.Tracer,
	logger *slog.Logger,
) driving.IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestService{
		parser:   parser,
		chunker:  chunker,
		batcher:  batcher,
		writer:   writer,
		docs:     docs,
		vectors:  vectors,
		keywords: keywords,
		chunks:   chunks,
		tracer:   tracer,
		logger:   logger,
	}
}

// Ingest parses, chunks, embeds, and indexes one file under a fresh
// document ID
func (s *ingestService) Ingest(ctx context.Context, scope domain.Scope, source, mimeType string, r io.Reader) (*domain.IngestResult, error) {
	return s.IngestWithID(ctx, scope, domain.GenerateID(), source, mimeType, r)
}

// IngestWithID runs the pipeline under a caller-supplied document ID.
// The async ingest path hands the ID to the client before the task runs,
// so the worker must index under that same ID.
func (s *ingestService) IngestWithID(ctx context.Context, scope domain.Scope, documentID, source, mimeType string, r io.Reader) (result *domain.IngestResult, err error) {
	started := time.Now()

	ctx, span := s.tracer.StartSpan(ctx, "ingest")
	span.SetInput(source)
	defer func() { span.End(err) }()

	if source == "" {
		return nil, domain.ErrInvalidInput
	}
	if documentID == "" {
		documentID = domain.GenerateID()
	}

	// Re-uploading a source replaces it, so a stale copy never shadows
	// the new content
	if existing, lookupErr := s.docs.GetBySource(ctx, scope, source); lookupErr == nil {
		s.logger.Info("replacing previously indexed document",
			"source", source, "document_id", existing.ID)
		if err = s.removeDocument(ctx, scope, existing); err != nil {
			return nil, fmt.Errorf("replacing %s: %w", source, err)
		}
	}

	parsed, err := s.parser.Parse(ctx, source, mimeType, r)
	if err != nil {
		return nil, err
	}
	span.AddEvent("parsed")

	chunks, err := s.chunker.Split(parsed)
	if err != nil {
		return nil, err
	}
	span.AddEvent("chunked")

	for _, c := range chunks {
		c.ID = domain.ChunkID(documentID, c.Index)
		c.DocumentID = documentID
		c.UserID = scope.UserID
		c.Source = source
	}

	if err = s.batcher.EmbedChunks(ctx, chunks); err != nil {
		return nil, err
	}
	span.AddEvent("embedded")

	if err = s.writer.Write(ctx, scope, documentID, chunks); err != nil {
		return nil, err
	}
	span.AddEvent("indexed")

	now := time.Now()
	doc := &domain.Document{
		ID:         documentID,
		UserID:     scope.UserID,
		Source:     source,
		MimeType:   mimeType,
		ChunkCount: len(chunks),
		CreatedAt:  now,
		IndexedAt:  now,
	}
	if err = s.docs.Save(ctx, doc); err != nil {
		// The indexes accepted everything but the registry did not;
		// roll the indexes back so the invariant holds
		s.writer.compensate(ctx, scope, documentID, "document registry", err)
		return nil, fmt.Errorf("saving document record: %w", err)
	}

	s.logger.Info("document ingested",
		"source", source,
		"document_id", documentID,
		"chunks", len(chunks),
		"took", time.Since(started))

	result = &domain.IngestResult{
		DocumentID:    documentID,
		Source:        source,
		ChunksIndexed: len(chunks),
	}
	span.SetOutput(result)
	return result, nil
}

// removeDocument deletes a document from both indexes, the chunk store,
// and the registry
func (s *ingestService) removeDocument(ctx context.Context, scope domain.Scope, doc *domain.Document) error {
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
	return nil
}
