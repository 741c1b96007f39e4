package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// DocumentParser extracts page-tagged text from an uploaded file.
// Returns domain.ErrParseFailure when the file cannot be read and
// domain.ErrEmptyInput when it parses but contains no text.
type DocumentParser interface {
	// Parse extracts text from the reader
	Parse(ctx context.Context, source, mimeType string, r io.Reader) (*domain.ParsedDocument, error)

	// Ping verifies the parser is available
	Ping(ctx context.Context) error
}
