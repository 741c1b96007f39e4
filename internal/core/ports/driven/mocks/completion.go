package mocks

import (
	"context"
	"sync"
)

// MockCompletionService returns a canned answer for testing
type MockCompletionService struct {
	mu sync.Mutex

	// Answer is returned by GenerateAnswer
	Answer string

	// Err forces GenerateAnswer to fail when set
	Err error

	// Questions records every question asked
	Questions []string

	// Passages records the passages of the last call
	Passages []string
}

// NewMockCompletionService creates a new MockCompletionService
func NewMockCompletionService() *MockCompletionService {
	return &MockCompletionService{Answer: "mock answer"}
}

func (m *MockCompletionService) GenerateAnswer(ctx context.Context, question string, passages []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Questions = append(m.Questions, question)
	m.Passages = passages
	if m.Err != nil {
		return "", m.Err
	}
	return m.Answer, nil
}

func (m *MockCompletionService) Model() string {
	return "mock-completion-model"
}

func (m *MockCompletionService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockCompletionService) Close() error {
	return nil
}
