package hnsw

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func setupTestIndex(t *testing.T) *VectorIndex {
	idx, err := NewVectorIndex(DefaultConfig(""))
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	return idx
}

func embeddedChunk(id, docID string, index int, embedding []float32) *domain.Chunk {
	return &domain.Chunk{
		ID:         id,
		DocumentID: docID,
		Source:     "notes.md",
		Content:    "chunk " + id,
		Index:      index,
		Embedding:  embedding,
	}
}

func TestVectorIndex_IndexAndSearch(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	scope := domain.Scope{UserID: "user-1"}

	chunks := []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, []float32{1, 0, 0, 0}),
		embeddedChunk("doc-1-chunk-1", "doc-1", 1, []float32{0, 1, 0, 0}),
		embeddedChunk("doc-1-chunk-2", "doc-1", 2, []float32{0, 0, 1, 0}),
	}
	if err := idx.IndexBatch(ctx, scope, chunks); err != nil {
		t.Fatalf("unexpected error indexing: %v", err)
	}

	matches, err := idx.Search(ctx, scope, []float32{0.9, 0.1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error searching: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ChunkID != "doc-1-chunk-0" {
		t.Errorf("expected nearest chunk doc-1-chunk-0, got %s", matches[0].ChunkID)
	}
	if matches[0].Similarity <= matches[1].Similarity {
		t.Errorf("expected descending similarity, got %f then %f",
			matches[0].Similarity, matches[1].Similarity)
	}
	if matches[0].UserID != "user-1" {
		t.Errorf("expected owner user-1, got %s", matches[0].UserID)
	}
	if matches[0].DocumentID != "doc-1" {
		t.Errorf("expected document doc-1, got %s", matches[0].DocumentID)
	}
}

func TestVectorIndex_ScopeIsolation(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()

	if err := idx.IndexBatch(ctx, domain.Scope{UserID: "user-1"}, []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, []float32{1, 0, 0, 0}),
	}); err != nil {
		t.Fatalf("unexpected error indexing: %v", err)
	}

	matches, err := idx.Search(ctx, domain.Scope{UserID: "user-2"}, []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error searching: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no cross-user matches, got %d", len(matches))
	}
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	scope := domain.Scope{UserID: "user-1"}

	if err := idx.IndexBatch(ctx, scope, []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, []float32{1, 0, 0, 0}),
	}); err != nil {
		t.Fatalf("unexpected error indexing: %v", err)
	}

	// Wrong dimension on index
	err := idx.IndexBatch(ctx, scope, []*domain.Chunk{
		embeddedChunk("doc-2-chunk-0", "doc-2", 0, []float32{1, 0}),
	})
	if err == nil {
		t.Error("expected dimension mismatch error on index")
	}

	// Wrong dimension on search
	if _, err := idx.Search(ctx, scope, []float32{1, 0}, 5); err == nil {
		t.Error("expected dimension mismatch error on search")
	}
}

func TestVectorIndex_MissingEmbedding(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	err := idx.IndexBatch(context.Background(), domain.Scope{UserID: "user-1"}, []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, nil),
	})
	if err == nil {
		t.Error("expected error for chunk without embedding")
	}
}

func TestVectorIndex_DeleteByDocument(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	scope := domain.Scope{UserID: "user-1"}

	if err := idx.IndexBatch(ctx, scope, []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, []float32{1, 0, 0, 0}),
		embeddedChunk("doc-2-chunk-0", "doc-2", 0, []float32{0, 1, 0, 0}),
	}); err != nil {
		t.Fatalf("unexpected error indexing: %v", err)
	}

	if err := idx.DeleteByDocument(ctx, scope, "doc-1"); err != nil {
		t.Fatalf("unexpected error deleting: %v", err)
	}

	matches, err := idx.Search(ctx, scope, []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error searching: %v", err)
	}
	for _, m := range matches {
		if m.DocumentID == "doc-1" {
			t.Errorf("expected doc-1 chunks gone, found %s", m.ChunkID)
		}
	}

	count, err := idx.Count(ctx, scope)
	if err != nil {
		t.Fatalf("unexpected error counting: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 vector after delete, got %d", count)
	}
}

func TestVectorIndex_ReindexSameChunk(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	scope := domain.Scope{UserID: "user-1"}

	if err := idx.IndexBatch(ctx, scope, []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, []float32{1, 0, 0, 0}),
	}); err != nil {
		t.Fatalf("unexpected error indexing: %v", err)
	}
	if err := idx.IndexBatch(ctx, scope, []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, []float32{0, 1, 0, 0}),
	}); err != nil {
		t.Fatalf("unexpected error reindexing: %v", err)
	}

	count, err := idx.Count(ctx, scope)
	if err != nil {
		t.Fatalf("unexpected error counting: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 vector after reindex, got %d", count)
	}

	matches, err := idx.Search(ctx, scope, []float32{0, 1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error searching: %v", err)
	}
	if len(matches) != 1 || matches[0].ChunkID != "doc-1-chunk-0" {
		t.Fatalf("expected the reindexed chunk, got %+v", matches)
	}
	if matches[0].Similarity < 0.99 {
		t.Errorf("expected near-perfect similarity to new embedding, got %f", matches[0].Similarity)
	}
}

func TestVectorIndex_EmptyCorpus(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	matches, err := idx.Search(context.Background(), domain.Scope{UserID: "user-1"}, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches != nil {
		t.Errorf("expected nil matches from empty corpus, got %v", matches)
	}
}

func TestVectorIndex_PersistAndReload(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig(filepath.Join(dir, "vectors"))
	idx, err := NewVectorIndex(cfg)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}

	ctx := context.Background()
	scope := domain.Scope{UserID: "user-1"}

	if err := idx.IndexBatch(ctx, scope, []*domain.Chunk{
		embeddedChunk("doc-1-chunk-0", "doc-1", 0, []float32{1, 0, 0, 0}),
		embeddedChunk("doc-1-chunk-1", "doc-1", 1, []float32{0, 1, 0, 0}),
	}); err != nil {
		t.Fatalf("unexpected error indexing: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}

	reloaded, err := NewVectorIndex(cfg)
	if err != nil {
		t.Fatalf("failed to reload index: %v", err)
	}
	defer reloaded.Close()

	count, err := reloaded.Count(ctx, scope)
	if err != nil {
		t.Fatalf("unexpected error counting: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 vectors after reload, got %d", count)
	}

	matches, err := reloaded.Search(ctx, scope, []float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error searching: %v", err)
	}
	if len(matches) != 1 || matches[0].ChunkID != "doc-1-chunk-0" {
		t.Fatalf("expected persisted chunk back, got %+v", matches)
	}
}

func TestVectorIndex_ClosedOperations(t *testing.T) {
	idx := setupTestIndex(t)
	if err := idx.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}

	if err := idx.Ping(context.Background()); err == nil {
		t.Error("expected ping error on closed index")
	}
	if _, err := idx.Search(context.Background(), domain.Scope{UserID: "u"}, []float32{1}, 1); err == nil {
		t.Error("expected search error on closed index")
	}
}
