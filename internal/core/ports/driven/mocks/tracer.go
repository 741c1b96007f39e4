package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// MockTracer records spans in memory so tests can assert on lifecycle events
type MockTracer struct {
	mu    sync.Mutex
	Spans []*MockSpan
}

// MockSpan is a recorded span
type MockSpan struct {
	Name   string
	Input  any
	Output any
	Events []string
	Err    error
	Ended  bool

	tracer *MockTracer
}

// NewMockTracer creates a new MockTracer
func NewMockTracer() *MockTracer {
	return &MockTracer{}
}

func (m *MockTracer) StartSpan(ctx context.Context, name string) (context.Context, driven.Span) {
	m.mu.Lock()
	defer m.mu.Unlock()
	span := &MockSpan{Name: name, tracer: m}
	m.Spans = append(m.Spans, span)
	return ctx, span
}

func (m *MockTracer) Flush(ctx context.Context) error {
	return nil
}

func (m *MockTracer) Close() error {
	return nil
}

func (s *MockSpan) SetInput(v any) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.Input = v
}

func (s *MockSpan) SetOutput(v any) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.Output = v
}

func (s *MockSpan) AddEvent(name string) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.Events = append(s.Events, name)
}

func (s *MockSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.Err = err
	s.Ended = true
}

// Helper methods for testing

// LastSpan returns the most recently started span, or nil
func (m *MockTracer) LastSpan() *MockSpan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Spans) == 0 {
		return nil
	}
	return m.Spans[len(m.Spans)-1]
}
