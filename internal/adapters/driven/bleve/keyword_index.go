package bleve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KeywordIndex = (*KeywordIndex)(nil)

// KeywordIndex implements driven.KeywordIndex using Bleve's BM25 scoring.
// Owner filtering is part of every query: the user_id field is indexed
// untokenized and AND-ed with the match query, so a hit outside the
// caller's corpus cannot be expressed.
type KeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// indexedChunk is the document shape Bleve indexes and stores.
type indexedChunk struct {
	UserID     string  `json:"user_id"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	ChunkIndex float64 `json:"chunk_index"`
}

// NewKeywordIndex opens or creates a Bleve index at path.
// An empty path creates an in-memory index, used in tests.
func NewKeywordIndex(path string) (*KeywordIndex, error) {
	indexMapping := buildIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	return &KeywordIndex{index: idx, path: path}, nil
}

// buildIndexMapping maps chunk text through the standard analyzer and the
// identity fields through the keyword analyzer so they match exactly.
func buildIndexMapping() *mapping.IndexMappingImpl {
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true

	identityField := bleve.NewTextFieldMapping()
	identityField.Analyzer = keyword.Name
	identityField.Store = true

	numericField := bleve.NewNumericFieldMapping()
	numericField.Store = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", contentField)
	docMapping.AddFieldMappingsAt("user_id", identityField)
	docMapping.AddFieldMappingsAt("document_id", identityField)
	docMapping.AddFieldMappingsAt("source", identityField)
	docMapping.AddFieldMappingsAt("chunk_index", numericField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// IndexBatch adds chunks to the index
func (k *KeywordIndex) IndexBatch(ctx context.Context, scope domain.Scope, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return fmt.Errorf("keyword index is closed")
	}

	batch := k.index.NewBatch()
	for _, c := range chunks {
		doc := indexedChunk{
			UserID:     scope.UserID,
			DocumentID: c.DocumentID,
			Source:     c.Source,
			Content:    c.Content,
			ChunkIndex: float64(c.Index),
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}

	if err := k.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// Search runs a BM25 match query scoped to the caller's chunks
func (k *KeywordIndex) Search(ctx context.Context, scope domain.Scope, queryStr string, limit int) ([]domain.KeywordMatch, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, fmt.Errorf("keyword index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return nil, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(k.scoped(scope, matchQuery))
	req.Size = limit
	req.Fields = []string{"user_id", "document_id", "source", "content", "chunk_index"}

	result, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	matches := make([]domain.KeywordMatch, 0, len(result.Hits))
	for _, hit := range result.Hits {
		m := domain.KeywordMatch{
			ChunkID: hit.ID,
			Score:   hit.Score,
		}
		if v, ok := hit.Fields["user_id"].(string); ok {
			m.UserID = v
		}
		if v, ok := hit.Fields["document_id"].(string); ok {
			m.DocumentID = v
		}
		if v, ok := hit.Fields["source"].(string); ok {
			m.Source = v
		}
		if v, ok := hit.Fields["content"].(string); ok {
			m.Content = v
		}
		if v, ok := hit.Fields["chunk_index"].(float64); ok {
			m.ChunkIndex = int(v)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteByDocument removes all of a document's chunks from the index
func (k *KeywordIndex) DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return fmt.Errorf("keyword index is closed")
	}

	docQuery := bleve.NewTermQuery(documentID)
	docQuery.SetField("document_id")

	req := bleve.NewSearchRequest(k.scoped(scope, docQuery))
	req.Size = maxDeleteBatch
	req.Fields = []string{}

	result, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("find document chunks: %w", err)
	}

	batch := k.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := k.index.Batch(batch); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	return nil
}

// maxDeleteBatch bounds how many chunks a single document delete can touch
const maxDeleteBatch = 10000

// Count returns the number of chunks indexed for the caller
func (k *KeywordIndex) Count(ctx context.Context, scope domain.Scope) (int, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return 0, fmt.Errorf("keyword index is closed")
	}

	userQuery := bleve.NewTermQuery(scope.UserID)
	userQuery.SetField("user_id")

	req := bleve.NewSearchRequest(userQuery)
	req.Size = 0

	result, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(result.Total), nil
}

// Ping verifies the index is open and answering queries
func (k *KeywordIndex) Ping(ctx context.Context) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return fmt.Errorf("keyword index is closed")
	}
	_, err := k.index.DocCount()
	return err
}

// Close closes the index
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.index.Close()
}

// scoped AND-s a query with the caller's user_id term
func (k *KeywordIndex) scoped(scope domain.Scope, q query.Query) query.Query {
	userQuery := bleve.NewTermQuery(scope.UserID)
	userQuery.SetField("user_id")
	return bleve.NewConjunctionQuery(userQuery, q)
}
