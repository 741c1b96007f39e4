package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Document represents one uploaded file in a user's corpus
type Document struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Source     string    `json:"source"` // Original filename
	MimeType   string    `json:"mime_type"`
	ChunkCount int       `json:"chunk_count"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Chunk is the unit of indexing and retrieval. The same chunk, with the
// same ID and owner, is written to both the semantic and the lexical index.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Source     string    `json:"source"` // Original filename, for citations
	Content    string    `json:"content"`
	Index      int       `json:"index"` // Position within the document
	PageStart  int       `json:"page_start,omitempty"`
	PageEnd    int       `json:"page_end,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// ChunkID derives the stable identifier for a chunk of a document. Both
// indexes use the same derivation so a chunk can be joined across them.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// Page is a span of extracted text with its page provenance. Parsers emit
// pages; the chunker never splits provenance tracking from content.
type Page struct {
	Number int    `json:"number"` // 1-based, 0 when the format has no pages
	Text   string `json:"text"`
}

// ParsedDocument is the parser output handed to the chunker
type ParsedDocument struct {
	Source   string `json:"source"`
	MimeType string `json:"mime_type"`
	Pages    []Page `json:"pages"`
}

// IngestResult summarizes a completed ingestion
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	Source        string `json:"source"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// CorpusStats aggregates a user's indexed corpus
type CorpusStats struct {
	TotalChunks     int           `json:"total_chunks"`
	UniqueDocuments int           `json:"unique_documents"`
	Sources         []SourceStats `json:"sources"`
}

// SourceStats counts the chunks indexed for one source file
type SourceStats struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}
