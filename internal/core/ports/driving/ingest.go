package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// IngestService turns an uploaded file into indexed chunks.
// Ingestion is all-or-nothing per document: on any failure, both indexes
// are left without a trace of the document.
type IngestService interface {
	// Ingest parses, chunks, embeds, and indexes one file under a fresh
	// document ID
	Ingest(ctx context.Context, scope domain.Scope, source, mimeType string, r io.Reader) (*domain.IngestResult, error)

	// IngestWithID is Ingest with a caller-supplied document ID, for
	// uploads whose ID was already handed to the client when the task
	// was accepted
	IngestWithID(ctx context.Context, scope domain.Scope, documentID, source, mimeType string, r io.Reader) (*domain.IngestResult, error)
}
