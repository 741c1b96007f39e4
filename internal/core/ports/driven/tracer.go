package driven

import "context"

// Tracer records query and ingest traces for offline inspection.
// The default implementation is a no-op; a Langfuse-compatible adapter is
// wired when credentials are configured.
type Tracer interface {
	// StartSpan opens a span and attaches it to the returned context
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// Flush sends any buffered spans
	Flush(ctx context.Context) error

	// Close flushes and releases the tracer
	Close() error
}

// Span is one traced operation
type Span interface {
	// SetInput attaches the operation input
	SetInput(v any)

	// SetOutput attaches the operation output
	SetOutput(v any)

	// AddEvent records a point-in-time event, such as a state transition
	AddEvent(name string)

	// End closes the span, recording the error if non-nil
	End(err error)
}
