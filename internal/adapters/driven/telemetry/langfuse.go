package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Tracer = (*LangfuseTracer)(nil)
	_ driven.Span   = (*langfuseSpan)(nil)
)

// defaultBatchSize is how many finished spans trigger an automatic flush
const defaultBatchSize = 20

// LangfuseTracer ships traces to a Langfuse-compatible ingestion endpoint.
// Spans are buffered and sent in batches; a failed flush drops the batch
// with a warning, tracing never blocks or fails the traced operation.
type LangfuseTracer struct {
	host      string
	publicKey string
	secretKey string
	client    *http.Client
	logger    *slog.Logger

	mu     sync.Mutex
	buffer []ingestionEvent
}

// NewLangfuseTracer creates a tracer for the given Langfuse host and keys
func NewLangfuseTracer(host, publicKey, secretKey string, logger *slog.Logger) (*LangfuseTracer, error) {
	if host == "" || publicKey == "" || secretKey == "" {
		return nil, fmt.Errorf("langfuse host, public key and secret key are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LangfuseTracer{
		host:      host,
		publicKey: publicKey,
		secretKey: secretKey,
		logger:    logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// ingestionEvent is one entry in a Langfuse ingestion batch
type ingestionEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Body      traceBody `json:"body"`
}

type traceBody struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Input     any            `json:"input,omitempty"`
	Output    any            `json:"output,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StartSpan opens a span that will be buffered for ingestion when ended
func (t *LangfuseTracer) StartSpan(ctx context.Context, name string) (context.Context, driven.Span) {
	return ctx, &langfuseSpan{
		tracer:  t,
		traceID: domain.GenerateID(),
		name:    name,
		started: time.Now(),
	}
}

// Flush sends buffered spans to the ingestion endpoint
func (t *LangfuseTracer) Flush(ctx context.Context) error {
	t.mu.Lock()
	batch := t.buffer
	t.buffer = nil
	t.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]any{"batch": batch})
	if err != nil {
		return fmt.Errorf("marshal trace batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.host+"/api/public/ingestion", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create ingestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(t.publicKey, t.secretKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send trace batch: %w", err)
	}
	defer resp.Body.Close()

	// Langfuse returns 207 for partial success
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return fmt.Errorf("ingestion returned status %d", resp.StatusCode)
	}
	return nil
}

// Close flushes remaining spans
func (t *LangfuseTracer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.Flush(ctx)
}

// enqueue buffers a finished span and flushes when the batch is full
func (t *LangfuseTracer) enqueue(event ingestionEvent) {
	t.mu.Lock()
	t.buffer = append(t.buffer, event)
	full := len(t.buffer) >= defaultBatchSize
	t.mu.Unlock()

	if full {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.Flush(ctx); err != nil {
			t.logger.Warn("trace flush failed", "error", err)
		}
	}
}

// langfuseSpan accumulates one operation's trace until End
type langfuseSpan struct {
	tracer  *LangfuseTracer
	traceID string
	name    string
	started time.Time

	mu     sync.Mutex
	input  any
	output any
	events []string
	ended  bool
}

func (s *langfuseSpan) SetInput(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = v
}

func (s *langfuseSpan) SetOutput(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = v
}

func (s *langfuseSpan) AddEvent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}

func (s *langfuseSpan) End(err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true

	metadata := map[string]any{
		"duration_ms": time.Since(s.started).Milliseconds(),
	}
	if len(s.events) > 0 {
		metadata["events"] = append([]string(nil), s.events...)
	}
	if err != nil {
		metadata["error"] = err.Error()
	}

	event := ingestionEvent{
		ID:        domain.GenerateID(),
		Type:      "trace-create",
		Timestamp: time.Now(),
		Body: traceBody{
			ID:        s.traceID,
			Name:      s.name,
			Timestamp: s.started,
			Input:     s.input,
			Output:    s.output,
			Metadata:  metadata,
		},
	}
	s.mu.Unlock()

	s.tracer.enqueue(event)
}
