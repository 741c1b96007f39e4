package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockChunkStore is an in-memory chunk store for testing
type MockChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]*domain.Chunk

	// SaveErr forces SaveBatch to fail when set
	SaveErr error
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{
		chunks: make(map[string]*domain.Chunk),
	}
}

func (m *MockChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MockChunkStore) GetByIDs(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Chunk
	for _, id := range ids {
		c, ok := m.chunks[id]
		if ok && c.UserID == scope.UserID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockChunkStore) GetByDocument(ctx context.Context, scope domain.Scope, documentID string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Chunk
	for _, c := range m.chunks {
		if c.UserID == scope.UserID && c.DocumentID == documentID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockChunkStore) DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chunks {
		if c.UserID == scope.UserID && c.DocumentID == documentID {
			delete(m.chunks, id)
		}
	}
	return nil
}

// Helper methods for testing

func (m *MockChunkStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
