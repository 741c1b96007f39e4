package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven/mocks"
)

type stubIngestService struct {
	mu     sync.Mutex
	err    error
	calls  []ingestCall
	doneCh chan struct{}
}

type ingestCall struct {
	Scope      domain.Scope
	DocumentID string
	Source     string
	MimeType   string
	Content    string
}

func newStubIngestService(err error) *stubIngestService {
	return &stubIngestService{err: err, doneCh: make(chan struct{}, 16)}
}

func (s *stubIngestService) Ingest(ctx context.Context, scope domain.Scope, source, mimeType string, r io.Reader) (*domain.IngestResult, error) {
	return s.IngestWithID(ctx, scope, "", source, mimeType, r)
}

func (s *stubIngestService) IngestWithID(ctx context.Context, scope domain.Scope, documentID, source, mimeType string, r io.Reader) (*domain.IngestResult, error) {
	content, _ := io.ReadAll(r)
	s.mu.Lock()
	s.calls = append(s.calls, ingestCall{Scope: scope, DocumentID: documentID, Source: source, MimeType: mimeType, Content: string(content)})
	s.mu.Unlock()
	s.doneCh <- struct{}{}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.IngestResult{DocumentID: documentID, Source: source, ChunksIndexed: 2}, nil
}

func (s *stubIngestService) Calls() []ingestCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ingestCall(nil), s.calls...)
}

func spoolFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "upload")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write spool file: %v", err)
	}
	return path
}

func waitForIngest(t *testing.T, svc *stubIngestService) {
	select {
	case <-svc.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingest call")
	}
}

func runWorker(t *testing.T, queue *mocks.MockTaskQueue, svc *stubIngestService) func() {
	w := New(Config{
		TaskQueue:      queue,
		IngestService:  svc,
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		t.Fatalf("failed to start worker: %v", err)
	}

	return func() {
		cancel()
		w.Stop()
	}
}

func waitForAck(t *testing.T, queue *mocks.MockTaskQueue, taskID string) {
	deadline := time.After(2 * time.Second)
	for {
		task, err := queue.GetTask(context.Background(), taskID)
		if err == nil && (task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for task %s to settle", taskID)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWorker_ProcessesIngestTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	svc := newStubIngestService(nil)

	path := spoolFile(t, "# Raft\n\nleaders are elected")
	task := domain.NewIngestTask("user-1", "doc-1", "raft.md", "text/markdown", path)
	if err := queue.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	stop := runWorker(t, queue, svc)
	defer stop()

	waitForIngest(t, svc)
	waitForAck(t, queue, task.ID)

	calls := svc.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 ingest call, got %d", len(calls))
	}
	if calls[0].Scope.UserID != "user-1" {
		t.Errorf("expected scope for user-1, got %s", calls[0].Scope.UserID)
	}
	// The client was told this ID at accept time; indexing must reuse it
	if calls[0].DocumentID != task.DocumentID() {
		t.Errorf("indexed under %q, client was told %q", calls[0].DocumentID, task.DocumentID())
	}
	if calls[0].Source != "raft.md" || calls[0].MimeType != "text/markdown" {
		t.Errorf("metadata not forwarded: %+v", calls[0])
	}
	if calls[0].Content != "# Raft\n\nleaders are elected" {
		t.Errorf("spool content mangled: %q", calls[0].Content)
	}

	got, err := queue.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed task, got %s", got.Status)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected spool file removed after successful ingest")
	}
}

func TestWorker_NacksFailedTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	svc := newStubIngestService(errors.New("embedding provider down"))

	path := spoolFile(t, "content")
	task := domain.NewIngestTask("user-1", "doc-1", "notes.md", "text/markdown", path)
	queue.Enqueue(context.Background(), task)

	stop := runWorker(t, queue, svc)
	defer stop()

	waitForIngest(t, svc)

	deadline := time.After(2 * time.Second)
	for {
		if queue.NackedCount() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for nack")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// The spool file survives so the retry can re-read the upload
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected spool file kept for retry: %v", err)
	}
}

func TestWorker_MissingSpoolFileFailsTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	svc := newStubIngestService(nil)

	task := domain.NewIngestTask("user-1", "doc-1", "notes.md", "text/markdown", "/nonexistent/spool")
	queue.Enqueue(context.Background(), task)

	stop := runWorker(t, queue, svc)
	defer stop()

	deadline := time.After(2 * time.Second)
	for {
		if queue.NackedCount() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for nack")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if len(svc.Calls()) != 0 {
		t.Error("ingest should not run without a spool file")
	}
}

func TestWorker_MalformedPayloadNacked(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	svc := newStubIngestService(nil)

	task := domain.NewTask(domain.TaskTypeIngestDocument, "user-1", map[string]string{})
	queue.Enqueue(context.Background(), task)

	stop := runWorker(t, queue, svc)
	defer stop()

	deadline := time.After(2 * time.Second)
	for {
		if queue.NackedCount() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for nack")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWorker_UnknownTaskTypeNacked(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	svc := newStubIngestService(nil)

	task := domain.NewTask(domain.TaskType("mystery"), "user-1", nil)
	queue.Enqueue(context.Background(), task)

	stop := runWorker(t, queue, svc)
	defer stop()

	deadline := time.After(2 * time.Second)
	for {
		if queue.NackedCount() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for nack")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if len(svc.Calls()) != 0 {
		t.Error("ingest should not run for unknown task types")
	}
}

func TestWorker_StartIsIdempotent(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	svc := newStubIngestService(nil)

	w := New(Config{TaskQueue: queue, IngestService: svc, Concurrency: 1, DequeueTimeout: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second start should be a no-op: %v", err)
	}

	cancel()
	w.Stop()
	w.Stop() // double stop must not panic
}

func TestWorker_Health(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	svc := newStubIngestService(nil)

	w := New(Config{TaskQueue: queue, IngestService: svc})

	health := w.Health(context.Background())
	if health.Running {
		t.Error("expected not running before start")
	}
	if !health.QueueHealth {
		t.Error("expected healthy queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer func() {
		cancel()
		w.Stop()
	}()

	health = w.Health(context.Background())
	if !health.Running {
		t.Error("expected running after start")
	}
}
