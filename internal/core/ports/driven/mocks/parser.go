package mocks

import (
	"context"
	"io"
	"strings"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockParser is a fake DocumentParser that splits input on form feeds
type MockParser struct {
	// Err forces Parse to fail when set
	Err error
}

// NewMockParser creates a new MockParser
func NewMockParser() *MockParser {
	return &MockParser{}
}

func (m *MockParser) Parse(ctx context.Context, source, mimeType string, r io.Reader) (*domain.ParsedDocument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.ErrParseFailure
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	doc := &domain.ParsedDocument{Source: source, MimeType: mimeType}
	for i, page := range strings.Split(text, "\f") {
		doc.Pages = append(doc.Pages, domain.Page{Number: i + 1, Text: page})
	}
	return doc, nil
}

func (m *MockParser) Ping(ctx context.Context) error {
	return nil
}
