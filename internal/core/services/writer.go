package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// DualWriter commits embedded chunks to both indexes. Writes go to the
// semantic index first, then the lexical index, batch by batch. On any
// failure it deletes the whole document from both indexes so no reader can
// ever observe a document present in one index and missing from the other.
type DualWriter struct {
	vectors   driven.VectorIndex
	keywords  driven.KeywordIndex
	chunks    driven.ChunkStore
	batchSize int
	logger    *slog.Logger
}

// NewDualWriter creates a new DualWriter. batchSize should match the
// embedding batch size.
func NewDualWriter(
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
	chunks driven.ChunkStore,
	batchSize int,
	logger *slog.Logger,
) *DualWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatcherConfig().BatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DualWriter{
		vectors:   vectors,
		keywords:  keywords,
		chunks:    chunks,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Write indexes all chunks of one document, all-or-nothing
func (w *DualWriter) Write(ctx context.Context, scope domain.Scope, documentID string, chunks []*domain.Chunk) error {
	for start := 0; start < len(chunks); start += w.batchSize {
		end := start + w.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := w.vectors.IndexBatch(ctx, scope, batch); err != nil {
			w.compensate(ctx, scope, documentID, "semantic", err)
			return fmt.Errorf("semantic index write: %w", err)
		}
		if err := w.keywords.IndexBatch(ctx, scope, batch); err != nil {
			w.compensate(ctx, scope, documentID, "lexical", err)
			return fmt.Errorf("lexical index write: %w", err)
		}
	}

	if err := w.chunks.SaveBatch(ctx, chunks); err != nil {
		w.compensate(ctx, scope, documentID, "chunk store", err)
		return fmt.Errorf("chunk store write: %w", err)
	}
	return nil
}

// compensate rolls the document out of every store after a partial write.
// Cleanup failures are logged, not returned: the caller already has the
// write error, and delete-by-document is idempotent so a retry of the
// ingest will finish the job.
func (w *DualWriter) compensate(ctx context.Context, scope domain.Scope, documentID, failedStore string, cause error) {
	w.logger.Error("dual write failed, rolling back document",
		"document_id", documentID,
		"failed_store", failedStore,
		"error", cause)

	if err := w.vectors.DeleteByDocument(ctx, scope, documentID); err != nil {
		w.logger.Error("rollback: semantic delete failed", "document_id", documentID, "error", err)
	}
	if err := w.keywords.DeleteByDocument(ctx, scope, documentID); err != nil {
		w.logger.Error("rollback: lexical delete failed", "document_id", documentID, "error", err)
	}
	if err := w.chunks.DeleteByDocument(ctx, scope, documentID); err != nil {
		w.logger.Error("rollback: chunk store delete failed", "document_id", documentID, "error", err)
	}
}
