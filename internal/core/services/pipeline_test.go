package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragcore/internal/chunking"
	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven/mocks"
)

// End-to-end pipeline wiring over the in-memory stores: ingest a document
// through the real chunker and batcher, then query it back and delete it.

type pipelineFixture struct {
	embedder   *mocks.MockEmbeddingService
	completion *mocks.MockCompletionService
	vectors    *mocks.MockVectorIndex
	keywords   *mocks.MockKeywordIndex
	chunkStore *mocks.MockChunkStore
	docStore   *mocks.MockDocumentStore

	ingest *ingestService
	query  *queryService
	docs   *documentService
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	f := &pipelineFixture{
		embedder:   mocks.NewMockEmbeddingService(),
		completion: mocks.NewMockCompletionService(),
		vectors:    mocks.NewMockVectorIndex(),
		keywords:   mocks.NewMockKeywordIndex(),
		chunkStore: mocks.NewMockChunkStore(),
		docStore:   mocks.NewMockDocumentStore(),
	}
	f.completion.Answer = "the leader is elected by majority vote"

	chunker := chunking.New(chunking.Config{Size: 80, Overlap: 10})
	batcher := NewBatcher(f.embedder, BatcherConfig{}, nil)
	writer := NewDualWriter(f.vectors, f.keywords, f.chunkStore, 0, nil)
	fuser := NewFuser(FusionConfig{})
	tracer := mocks.NewMockTracer()

	f.ingest = NewIngestService(
		mocks.NewMockParser(), chunker, batcher, writer,
		f.docStore, f.vectors, f.keywords, f.chunkStore, tracer, nil,
	).(*ingestService)
	f.query = NewQueryService(
		f.embedder, f.vectors, f.keywords, f.chunkStore, f.completion,
		fuser, tracer, QueryConfig{}, nil,
	).(*queryService)
	f.docs = NewDocumentService(
		f.docStore, f.chunkStore, f.vectors, f.keywords, nil,
	).(*documentService)
	return f
}

func TestPipeline_IngestQueryDelete(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	scope := domain.Scope{UserID: "user-1"}

	content := "Raft elects a single leader per term. " +
		"Candidates request votes and win with a majority. " +
		"Followers reset their timers when the leader heartbeats."

	result, err := f.ingest.Ingest(ctx, scope, "raft.md", "text/markdown",
		strings.NewReader(content))
	require.NoError(t, err)
	require.NotEmpty(t, result.DocumentID)
	require.Greater(t, result.ChunksIndexed, 0)

	// Both indexes and the chunk store hold the same number of chunks
	vectorCount, err := f.vectors.Count(ctx, scope)
	require.NoError(t, err)
	keywordCount, err := f.keywords.Count(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, result.ChunksIndexed, vectorCount)
	assert.Equal(t, result.ChunksIndexed, keywordCount)
	assert.Equal(t, result.ChunksIndexed, f.chunkStore.Count())

	// Query it back
	answer, err := f.query.Query(ctx, scope, "leader", 5)
	require.NoError(t, err)
	assert.Equal(t, "the leader is elected by majority vote", answer.Answer)
	require.NotEmpty(t, answer.Citations)
	for _, c := range answer.Citations {
		assert.Equal(t, "raft.md", c.Source)
		assert.NotEmpty(t, c.Content)
	}

	// The completion provider saw the retrieved passages as context
	require.NotEmpty(t, f.completion.Passages)
	assert.Contains(t, strings.Join(f.completion.Passages, " "), "leader")

	// Delete removes every trace
	require.NoError(t, f.docs.DeleteBySource(ctx, scope, "raft.md"))

	vectorCount, _ = f.vectors.Count(ctx, scope)
	keywordCount, _ = f.keywords.Count(ctx, scope)
	assert.Zero(t, vectorCount)
	assert.Zero(t, keywordCount)
	assert.Zero(t, f.chunkStore.Count())
	assert.Zero(t, f.docStore.Count())

	after, err := f.query.Query(ctx, scope, "leader", 5)
	require.NoError(t, err)
	assert.Empty(t, after.Citations)
}

func TestPipeline_ScopeIsolation(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.ingest.Ingest(ctx, domain.Scope{UserID: "alice"}, "raft.md",
		"text/markdown", strings.NewReader("Raft elects a single leader per term."))
	require.NoError(t, err)

	result, err := f.query.Query(ctx, domain.Scope{UserID: "bob"}, "leader", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Citations, "bob must not see alice's corpus")

	docs, err := f.docs.List(ctx, domain.Scope{UserID: "bob"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
