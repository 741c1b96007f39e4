package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentParser = (*TextParser)(nil)

// TextParser handles plain text and markdown uploads locally.
// Pages are delimited by form feed characters; files without form feeds
// become a single page.
type TextParser struct{}

// NewTextParser creates a new TextParser
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse extracts page-tagged text from the reader
func (p *TextParser) Parse(ctx context.Context, source, mimeType string, r io.Reader) (*domain.ParsedDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w: %w", err, domain.ErrParseFailure)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	var pages []domain.Page
	for i, pageText := range strings.Split(text, "\f") {
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, domain.Page{
			Number: i + 1,
			Text:   pageText,
		})
	}
	if len(pages) == 0 {
		return nil, domain.ErrEmptyInput
	}

	return &domain.ParsedDocument{
		Source:   source,
		MimeType: mimeType,
		Pages:    pages,
	}, nil
}

// Ping always succeeds: the local parser has no dependencies
func (p *TextParser) Ping(ctx context.Context) error {
	return nil
}
