package telemetry

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Tracer = (*NoopTracer)(nil)
	_ driven.Span   = (*noopSpan)(nil)
)

// NoopTracer discards all spans. Wired when no tracing backend is configured.
type NoopTracer struct{}

// NewNoopTracer creates a tracer that records nothing
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

func (t *NoopTracer) StartSpan(ctx context.Context, name string) (context.Context, driven.Span) {
	return ctx, noopSpan{}
}

func (t *NoopTracer) Flush(ctx context.Context) error { return nil }

func (t *NoopTracer) Close() error { return nil }

type noopSpan struct{}

func (noopSpan) SetInput(v any)       {}
func (noopSpan) SetOutput(v any)      {}
func (noopSpan) AddEvent(name string) {}
func (noopSpan) End(err error)        {}
