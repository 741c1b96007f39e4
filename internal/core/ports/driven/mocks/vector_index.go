package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockVectorIndex is an in-memory stand-in for the semantic index
type MockVectorIndex struct {
	mu     sync.RWMutex
	chunks map[string]map[string]*domain.Chunk // userID -> chunkID -> chunk

	// IndexErr forces IndexBatch to fail when set
	IndexErr error

	// SearchErr forces Search to fail when set
	SearchErr error

	// SearchDelay makes Search wait before answering, for timeout tests
	SearchDelay time.Duration

	// SearchResults overrides Search output when non-nil
	SearchResults []domain.VectorMatch

	// DeletedDocs records every DeleteByDocument call
	DeletedDocs []string
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		chunks: make(map[string]map[string]*domain.Chunk),
	}
}

func (m *MockVectorIndex) IndexBatch(ctx context.Context, scope domain.Scope, chunks []*domain.Chunk) error {
	if m.IndexErr != nil {
		return m.IndexErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks[scope.UserID] == nil {
		m.chunks[scope.UserID] = make(map[string]*domain.Chunk)
	}
	for _, c := range chunks {
		m.chunks[scope.UserID][c.ID] = c
	}
	return nil
}

func (m *MockVectorIndex) Search(ctx context.Context, scope domain.Scope, embedding []float32, k int) ([]domain.VectorMatch, error) {
	if m.SearchDelay > 0 {
		select {
		case <-time.After(m.SearchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if m.SearchResults != nil {
		out := m.SearchResults
		if len(out) > k {
			out = out[:k]
		}
		return out, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []domain.VectorMatch
	for _, c := range m.chunks[scope.UserID] {
		matches = append(matches, domain.VectorMatch{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			UserID:     c.UserID,
			Source:     c.Source,
			Content:    c.Content,
			ChunkIndex: c.Index,
			Similarity: 1.0,
		})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}

func (m *MockVectorIndex) DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedDocs = append(m.DeletedDocs, documentID)
	for id, c := range m.chunks[scope.UserID] {
		if c.DocumentID == documentID {
			delete(m.chunks[scope.UserID], id)
		}
	}
	return nil
}

func (m *MockVectorIndex) Count(ctx context.Context, scope domain.Scope) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks[scope.UserID]), nil
}

func (m *MockVectorIndex) Ping(ctx context.Context) error {
	return nil
}

func (m *MockVectorIndex) Close() error {
	return nil
}
