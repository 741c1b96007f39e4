package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockDocumentStore is an in-memory document registry for testing
type MockDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document

	// SaveErr forces Save to fail when set
	SaveErr error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		docs: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, scope domain.Scope, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok || doc.UserID != scope.UserID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) GetBySource(ctx context.Context, scope domain.Scope, source string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.docs {
		if doc.UserID == scope.UserID && doc.Source == source {
			return doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockDocumentStore) List(ctx context.Context, scope domain.Scope) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Document
	for _, doc := range m.docs {
		if doc.UserID == scope.UserID {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Source < result[j].Source })
	return result, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, scope domain.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok || doc.UserID != scope.UserID {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MockDocumentStore) Stats(ctx context.Context, scope domain.Scope) (*domain.CorpusStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.CorpusStats{}
	for _, doc := range m.docs {
		if doc.UserID != scope.UserID {
			continue
		}
		stats.UniqueDocuments++
		stats.TotalChunks += doc.ChunkCount
		stats.Sources = append(stats.Sources, domain.SourceStats{Name: doc.Source, Chunks: doc.ChunkCount})
	}
	sort.Slice(stats.Sources, func(i, j int) bool { return stats.Sources[i].Name < stats.Sources[j].Name })
	return stats, nil
}

// Helper methods for testing

func (m *MockDocumentStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
