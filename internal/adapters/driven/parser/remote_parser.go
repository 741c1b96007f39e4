package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentParser = (*RemoteParser)(nil)

// RemoteParser delegates extraction to a parser service over HTTP.
// Used for formats the local parser cannot handle (PDF, DOCX).
// The service accepts a multipart upload and returns page-tagged text.
type RemoteParser struct {
	baseURL string
	client  *http.Client
}

// NewRemoteParser creates a parser client for the given service URL
func NewRemoteParser(baseURL string) (*RemoteParser, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("parser URL is required")
	}
	return &RemoteParser{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// parseResponse is the parser service's response body
type parseResponse struct {
	Pages []struct {
		Number int    `json:"number"`
		Text   string `json:"text"`
	} `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Parse uploads the file to the parser service and maps its response
func (p *RemoteParser) Parse(ctx context.Context, source, mimeType string, r io.Reader) (*domain.ParsedDocument, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", source)
	if err != nil {
		return nil, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy upload: %w: %w", err, domain.ErrParseFailure)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/parse", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Mime-Type", mimeType)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parser request failed: %w: %w", err, domain.ErrParseFailure)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read parser response: %w: %w", err, domain.ErrParseFailure)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, domain.ErrParseFailure
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("parser returned status %d: %w", resp.StatusCode, domain.ErrParseFailure)
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode parser response: %w: %w", err, domain.ErrParseFailure)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("parser error: %s: %w", parsed.Error, domain.ErrParseFailure)
	}
	if len(parsed.Pages) == 0 {
		return nil, domain.ErrEmptyInput
	}

	doc := &domain.ParsedDocument{
		Source:   source,
		MimeType: mimeType,
	}
	for _, page := range parsed.Pages {
		doc.Pages = append(doc.Pages, domain.Page{
			Number: page.Number,
			Text:   page.Text,
		})
	}
	return doc, nil
}

// Ping checks the parser service health endpoint
func (p *RemoteParser) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("parser ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("parser ping returned status %d", resp.StatusCode)
	}
	return nil
}
