package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// QueryConfig configures the hybrid query engine
type QueryConfig struct {
	// SourceK is how many candidates each index returns before fusion
	SourceK int

	// SearchTimeout bounds each index search independently
	SearchTimeout time.Duration
}

// DefaultQueryConfig returns sensible defaults
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		SourceK:       20,
		SearchTimeout: 500 * time.Millisecond,
	}
}

// queryService implements the QueryService interface. A query moves through
// received -> embedding -> retrieving -> fusing -> completed, with failed as
// the terminal state for fatal errors. Each transition is recorded on the
// trace span.
type queryService struct {
	embedder   driven.EmbeddingService
	vectors    driven.VectorIndex
	keywords   driven.KeywordIndex
	chunkStore driven.ChunkStore
	completion driven.CompletionService
	fuser      *Fuser
	tracer     driven.Tracer
	config     QueryConfig
	logger     *slog.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
	chunkStore driven.ChunkStore,
	completion driven.CompletionService,
	fuser *Fuser,
	tracer driven.Tracer,
	config QueryConfig,
	logger *slog.Logger,
) driving.QueryService {
	def := DefaultQueryConfig()
	if config.SourceK <= 0 {
		config.SourceK = def.SourceK
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = def.SearchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &queryService{
		embedder:   embedder,
		vectors:    vectors,
		keywords:   keywords,
		chunkStore: chunkStore,
		completion: completion,
		fuser:      fuser,
		tracer:     tracer,
		config:     config,
		logger:     logger,
	}
}

// Query answers a question over the caller's corpus
func (s *queryService) Query(ctx context.Context, scope domain.Scope, question string, topK int) (result *domain.QueryResult, err error) {
	started := time.Now()

	ctx, span := s.tracer.StartSpan(ctx, "hybrid_query")
	span.SetInput(question)
	span.AddEvent(string(domain.QueryStateReceived))
	defer func() {
		if err != nil {
			span.AddEvent(string(domain.QueryStateFailed))
		}
		span.End(err)
	}()

	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrInvalidInput
	}

	// Embedding failure is fatal. Falling back to lexical-only here would
	// silently change result semantics, so we refuse instead.
	span.AddEvent(string(domain.QueryStateEmbedding))
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	span.AddEvent(string(domain.QueryStateRetrieving))
	vectorMatches, keywordMatches, err := s.retrieve(ctx, scope, question, queryEmbedding)
	if err != nil {
		return nil, err
	}

	if err := checkOwnership(scope, vectorMatches, keywordMatches, s.logger); err != nil {
		return nil, err
	}

	span.AddEvent(string(domain.QueryStateFusing))
	fused := s.fuser.Fuse(vectorMatches, keywordMatches, topK)

	if err := s.hydrate(ctx, scope, fused); err != nil {
		return nil, err
	}

	answer := s.generateAnswer(ctx, question, fused)

	citations := make([]domain.Citation, len(fused))
	for i, r := range fused {
		citations[i] = domain.Citation{
			Content:    r.Content,
			Source:     r.Source,
			ChunkIndex: r.ChunkIndex,
		}
	}

	result = &domain.QueryResult{
		Answer:    answer,
		Citations: citations,
		State:     domain.QueryStateCompleted,
		Took:      time.Since(started),
	}
	span.AddEvent(string(domain.QueryStateCompleted))
	span.SetOutput(result)
	return result, nil
}

// retrieve fans out to both indexes with independent timeouts. One slow or
// failing index degrades the query to single-source results; losing both
// aborts it.
func (s *queryService) retrieve(ctx context.Context, scope domain.Scope, question string, embedding []float32) ([]domain.VectorMatch, []domain.KeywordMatch, error) {
	var (
		vectorMatches  []domain.VectorMatch
		keywordMatches []domain.KeywordMatch
		vectorErr      error
		keywordErr     error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sctx, cancel := context.WithTimeout(gctx, s.config.SearchTimeout)
		defer cancel()
		matches, err := s.vectors.Search(sctx, scope, embedding, s.config.SourceK)
		if err != nil {
			// Degradation, not group failure: the other source may win
			vectorErr = err
			return nil
		}
		vectorMatches = matches
		return nil
	})

	g.Go(func() error {
		sctx, cancel := context.WithTimeout(gctx, s.config.SearchTimeout)
		defer cancel()
		matches, err := s.keywords.Search(sctx, scope, question, s.config.SourceK)
		if err != nil {
			keywordErr = err
			return nil
		}
		keywordMatches = matches
		return nil
	})

	// Sub-searches never return errors, so this cannot fail; Wait is only
	// the join point.
	_ = g.Wait()

	if vectorErr != nil && keywordErr != nil {
		return nil, nil, fmt.Errorf("%w: semantic: %v; lexical: %v",
			domain.ErrStoreUnavailable, vectorErr, keywordErr)
	}
	if vectorErr != nil {
		s.logger.Warn("semantic search degraded", "error", vectorErr)
	}
	if keywordErr != nil {
		s.logger.Warn("lexical search degraded", "error", keywordErr)
	}

	return vectorMatches, keywordMatches, nil
}

// checkOwnership cross-checks that both indexes agree every returned chunk
// belongs to the caller. A mismatch means the stores have diverged; the
// query fails closed and the condition is logged for investigation, never
// repaired in-line.
func checkOwnership(scope domain.Scope, vector []domain.VectorMatch, keyword []domain.KeywordMatch, logger *slog.Logger) error {
	for _, m := range vector {
		if m.UserID != "" && m.UserID != scope.UserID {
			logger.Error("semantic index returned foreign chunk",
				"chunk_id", m.ChunkID, "owner", m.UserID, "caller", scope.UserID)
			return domain.ErrConsistencyViolation
		}
	}
	for _, m := range keyword {
		if m.UserID != "" && m.UserID != scope.UserID {
			logger.Error("lexical index returned foreign chunk",
				"chunk_id", m.ChunkID, "owner", m.UserID, "caller", scope.UserID)
			return domain.ErrConsistencyViolation
		}
	}
	return nil
}

// hydrate fills in text for results whose backend returned no content
// (the semantic index stores vectors, not text)
func (s *queryService) hydrate(ctx context.Context, scope domain.Scope, fused []domain.FusedResult) error {
	var missing []string
	for _, r := range fused {
		if r.Content == "" {
			missing = append(missing, r.ChunkID)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	chunks, err := s.chunkStore.GetByIDs(ctx, scope, missing)
	if err != nil {
		return fmt.Errorf("hydrating results: %w", err)
	}
	byID := make(map[string]*domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	for i := range fused {
		if fused[i].Content == "" {
			if c, ok := byID[fused[i].ChunkID]; ok {
				fused[i].Content = c.Content
			}
		}
	}
	return nil
}

// generateAnswer asks the completion provider for a grounded answer.
// Retrieval already succeeded at this point, so a provider outage degrades
// the response to citations-only instead of failing the query.
func (s *queryService) generateAnswer(ctx context.Context, question string, fused []domain.FusedResult) string {
	if s.completion == nil || len(fused) == 0 {
		return ""
	}

	passages := make([]string, len(fused))
	for i, r := range fused {
		passages[i] = r.Content
	}

	answer, err := s.completion.GenerateAnswer(ctx, question, passages)
	if err != nil {
		s.logger.Warn("answer generation degraded to citations only", "error", err)
		return ""
	}
	return answer
}
