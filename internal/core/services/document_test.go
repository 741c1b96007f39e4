package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven/mocks"
)

type documentFixture struct {
	docs     *mocks.MockDocumentStore
	chunks   *mocks.MockChunkStore
	vectors  *mocks.MockVectorIndex
	keywords *mocks.MockKeywordIndex
	svc      *documentService
}

func newDocumentFixture() *documentFixture {
	f := &documentFixture{
		docs:     mocks.NewMockDocumentStore(),
		chunks:   mocks.NewMockChunkStore(),
		vectors:  mocks.NewMockVectorIndex(),
		keywords: mocks.NewMockKeywordIndex(),
	}
	f.svc = NewDocumentService(f.docs, f.chunks, f.vectors, f.keywords, nil).(*documentService)
	return f
}

func (f *documentFixture) seed(userID, docID, source string, chunkCount int) {
	ctx := context.Background()
	scope := domain.Scope{UserID: userID}
	_ = f.docs.Save(ctx, &domain.Document{
		ID: docID, UserID: userID, Source: source, ChunkCount: chunkCount,
	})
	var cs []*domain.Chunk
	for i := 0; i < chunkCount; i++ {
		cs = append(cs, &domain.Chunk{
			ID: domain.ChunkID(docID, i), DocumentID: docID, UserID: userID,
			Source: source, Content: "text", Index: i, Embedding: []float32{1},
		})
	}
	_ = f.chunks.SaveBatch(ctx, cs)
	_ = f.vectors.IndexBatch(ctx, scope, cs)
	_ = f.keywords.IndexBatch(ctx, scope, cs)
}

func TestDocumentService_ListScoped(t *testing.T) {
	f := newDocumentFixture()
	f.seed("user-1", "doc-1", "a.txt", 3)
	f.seed("user-1", "doc-2", "b.txt", 2)
	f.seed("user-2", "doc-3", "c.txt", 4)

	docs, err := f.svc.List(context.Background(), domain.Scope{UserID: "user-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for _, d := range docs {
		if d.UserID != "user-1" {
			t.Errorf("foreign document %s leaked into listing", d.ID)
		}
	}
}

func TestDocumentService_Stats(t *testing.T) {
	f := newDocumentFixture()
	f.seed("user-1", "doc-1", "a.txt", 3)
	f.seed("user-1", "doc-2", "b.txt", 2)
	f.seed("user-2", "doc-3", "c.txt", 9)

	stats, err := f.svc.Stats(context.Background(), domain.Scope{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalChunks != 5 {
		t.Errorf("expected 5 total chunks, got %d", stats.TotalChunks)
	}
	if stats.UniqueDocuments != 2 {
		t.Errorf("expected 2 documents, got %d", stats.UniqueDocuments)
	}
}

func TestDocumentService_DeleteBySource(t *testing.T) {
	f := newDocumentFixture()
	f.seed("user-1", "doc-1", "a.txt", 3)
	scope := domain.Scope{UserID: "user-1"}

	if err := f.svc.DeleteBySource(context.Background(), scope, "a.txt"); err != nil {
		t.Fatalf("DeleteBySource() error = %v", err)
	}

	if f.docs.Count() != 0 {
		t.Error("document still registered after delete")
	}
	vc, _ := f.vectors.Count(context.Background(), scope)
	kc, _ := f.keywords.Count(context.Background(), scope)
	if vc != 0 || kc != 0 || f.chunks.Count() != 0 {
		t.Error("chunks survived the delete in some store")
	}
}

func TestDocumentService_DeleteBySource_NotOwned(t *testing.T) {
	f := newDocumentFixture()
	f.seed("user-2", "doc-1", "a.txt", 3)

	// A filename match in someone else's corpus must look like absence
	err := f.svc.DeleteBySource(context.Background(), domain.Scope{UserID: "user-1"}, "a.txt")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.docs.Count() != 1 {
		t.Error("foreign document was deleted")
	}
}

func TestDocumentService_DeleteBySource_Unknown(t *testing.T) {
	f := newDocumentFixture()

	err := f.svc.DeleteBySource(context.Background(), domain.Scope{UserID: "user-1"}, "ghost.txt")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// misfilteringChunkStore simulates a chunk store whose scope filter has
// broken: GetByDocument returns a chunk recorded under another owner
type misfilteringChunkStore struct {
	*mocks.MockChunkStore
	foreign *domain.Chunk
}

func (s *misfilteringChunkStore) GetByDocument(ctx context.Context, scope domain.Scope, documentID string) ([]*domain.Chunk, error) {
	return []*domain.Chunk{s.foreign}, nil
}

func TestDocumentService_DeleteBySource_ConsistencyViolation(t *testing.T) {
	ctx := context.Background()
	docs := mocks.NewMockDocumentStore()
	_ = docs.Save(ctx, &domain.Document{ID: "doc-1", UserID: "user-1", Source: "a.txt", ChunkCount: 1})

	chunks := &misfilteringChunkStore{
		MockChunkStore: mocks.NewMockChunkStore(),
		foreign: &domain.Chunk{
			ID: domain.ChunkID("doc-1", 0), DocumentID: "doc-1",
			UserID: "someone-else", Source: "a.txt", Content: "text",
		},
	}
	svc := NewDocumentService(docs, chunks, mocks.NewMockVectorIndex(), mocks.NewMockKeywordIndex(), nil)

	err := svc.DeleteBySource(ctx, domain.Scope{UserID: "user-1"}, "a.txt")
	if !errors.Is(err, domain.ErrConsistencyViolation) {
		t.Fatalf("expected ErrConsistencyViolation, got %v", err)
	}
	if docs.Count() != 1 {
		t.Error("delete must not proceed past a consistency violation")
	}
}
