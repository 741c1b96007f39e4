package mocks

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing.
// Embeddings are deterministic hashes of the text so tests can assert
// order preservation without caring about values.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string

	// Calls records every batch passed to Embed
	Calls [][]string

	// QueryCalls records every query passed to EmbedQuery
	QueryCalls []string

	// Failures is consumed one error per Embed call; nil entries succeed
	Failures []error

	// QueryErr forces EmbedQuery to fail when set
	QueryErr error
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 8,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make([]string, len(texts))
	copy(batch, texts)
	m.Calls = append(m.Calls, batch)

	if len(m.Failures) > 0 {
		err := m.Failures[0]
		m.Failures = m.Failures[1:]
		if err != nil {
			return nil, err
		}
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	m.QueryCalls = append(m.QueryCalls, query)
	m.mu.Unlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.generateEmbedding(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// generateEmbedding generates a deterministic embedding based on text hash
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

// FailNext queues errs to be returned by the next Embed calls
func (m *MockEmbeddingService) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, errs...)
}

// BatchSizes returns the size of every recorded Embed batch
func (m *MockEmbeddingService) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.Calls))
	for i, c := range m.Calls {
		sizes[i] = len(c)
	}
	return sizes
}
