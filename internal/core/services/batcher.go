package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// BatcherConfig configures the embedding batcher
type BatcherConfig struct {
	// BatchSize is the number of texts per provider call
	BatchSize int

	// MaxChars is the hard per-text truncation bound, in runes
	MaxChars int

	// MaxAttempts bounds retries for a single batch
	MaxAttempts int

	// InitialBackoff is the delay before the first retry, doubled per attempt
	InitialBackoff time.Duration
}

// DefaultBatcherConfig returns sensible defaults
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize:      10,
		MaxChars:       800,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Batcher groups chunks into fixed-size embedding batches. Output embeddings
// are assigned back to chunks positionally, so order is preserved end to end.
type Batcher struct {
	embedder driven.EmbeddingService
	config   BatcherConfig
	logger   *slog.Logger
}

// NewBatcher creates a new Batcher
func NewBatcher(embedder driven.EmbeddingService, config BatcherConfig, logger *slog.Logger) *Batcher {
	def := DefaultBatcherConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxChars <= 0 {
		config.MaxChars = def.MaxChars
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = def.InitialBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{embedder: embedder, config: config, logger: logger}
}

// BatchSize returns the configured batch size. The dual-store writer uses
// the same size so a write batch maps one-to-one onto an embedding batch.
func (b *Batcher) BatchSize() int {
	return b.config.BatchSize
}

// EmbedChunks fills in the Embedding field of every chunk, in place and in
// order. A failed batch fails the whole document: partially embedded
// documents must never reach the indexes.
func (b *Batcher) EmbedChunks(ctx context.Context, chunks []*domain.Chunk) error {
	for start := 0; start < len(chunks); start += b.config.BatchSize {
		end := start + b.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = b.truncate(c)
		}

		embeddings, err := b.embedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at chunk %d: %w", start, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("%w: got %d embeddings for %d texts",
				domain.ErrEmbeddingRejected, len(embeddings), len(batch))
		}

		for i, emb := range embeddings {
			batch[i].Embedding = emb
		}
	}
	return nil
}

// embedBatch calls the provider with bounded retries. Only transient
// failures are retried; rejections abort immediately.
func (b *Batcher) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := b.config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		embeddings, err := b.embedder.Embed(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		if attempt == b.config.MaxAttempts {
			break
		}

		b.logger.Warn("embedding batch failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	return nil, lastErr
}

// truncate enforces the provider's input bound, cutting on rune boundaries
func (b *Batcher) truncate(c *domain.Chunk) string {
	runes := []rune(c.Content)
	if len(runes) <= b.config.MaxChars {
		return c.Content
	}
	b.logger.Warn("truncating oversized chunk for embedding",
		"chunk_id", c.ID,
		"chars", len(runes),
		"max_chars", b.config.MaxChars)
	return string(runes[:b.config.MaxChars])
}
