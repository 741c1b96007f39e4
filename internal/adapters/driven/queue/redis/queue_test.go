package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// setupTestQueue creates a miniredis-backed queue for testing
func setupTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	queue, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	return queue, mr, func() {
		client.Close()
		mr.Close()
	}
}

func createTestTask(userID string) *domain.Task {
	return domain.NewIngestTask(userID, "doc-1", "notes.md", "text/markdown", "/tmp/spool/doc-1")
}

func TestNewQueue_RequiresClient(t *testing.T) {
	if _, err := NewQueue(nil, "worker"); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()
	task := createTestTask("user-1")

	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error enqueueing: %v", err)
	}

	got, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error dequeueing: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task, got nil")
	}
	if got.ID != task.ID {
		t.Errorf("expected task ID %s, got %s", task.ID, got.ID)
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user ID user-1, got %s", got.UserID)
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("expected status processing, got %s", got.Status)
	}
	if got.DocumentID() != "doc-1" {
		t.Errorf("expected document ID doc-1, got %s", got.DocumentID())
	}
}

func TestQueue_Enqueue_NilTask(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := queue.Enqueue(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil task")
	}
}

func TestQueue_DequeueEmpty(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	got, err := queue.DequeueWithTimeout(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil task from empty queue, got %+v", got)
	}
}

func TestQueue_Ack(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()
	task := createTestTask("user-1")

	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error enqueueing: %v", err)
	}
	got, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("dequeue failed: task=%v err=%v", got, err)
	}

	if err := queue.Ack(ctx, got.ID); err != nil {
		t.Fatalf("unexpected error acking: %v", err)
	}

	stored, err := queue.GetTask(ctx, got.ID)
	if err != nil {
		t.Fatalf("unexpected error getting task: %v", err)
	}
	if stored.Status != domain.TaskStatusCompleted {
		t.Errorf("expected status completed, got %s", stored.Status)
	}

	// Acked task must not come back
	again, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != nil {
		t.Errorf("expected empty queue after ack, got %+v", again)
	}
}

func TestQueue_Nack_Retries(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()
	task := createTestTask("user-1")

	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error enqueueing: %v", err)
	}
	got, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("dequeue failed: task=%v err=%v", got, err)
	}

	if err := queue.Nack(ctx, got.ID, "embedding provider down"); err != nil {
		t.Fatalf("unexpected error nacking: %v", err)
	}

	stored, err := queue.GetTask(ctx, got.ID)
	if err != nil {
		t.Fatalf("unexpected error getting task: %v", err)
	}
	if stored.Status != domain.TaskStatusPending {
		t.Errorf("expected status pending for retry, got %s", stored.Status)
	}
	if stored.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", stored.Attempts)
	}
	if stored.Error != "embedding provider down" {
		t.Errorf("expected failure reason recorded, got %q", stored.Error)
	}
	if !stored.ScheduledFor.After(time.Now()) {
		t.Error("expected retry to be scheduled in the future")
	}
}

func TestQueue_Nack_ExhaustedRetries(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()
	task := createTestTask("user-1")
	task.Attempts = task.MaxAttempts

	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error enqueueing: %v", err)
	}
	got, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("dequeue failed: task=%v err=%v", got, err)
	}

	if err := queue.Nack(ctx, got.ID, "still broken"); err != nil {
		t.Fatalf("unexpected error nacking: %v", err)
	}

	stored, err := queue.GetTask(ctx, got.ID)
	if err != nil {
		t.Fatalf("unexpected error getting task: %v", err)
	}
	if stored.Status != domain.TaskStatusFailed {
		t.Errorf("expected status failed, got %s", stored.Status)
	}
}

func TestQueue_ScheduledTaskPromotion(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()
	task := createTestTask("user-1")
	task.ScheduledFor = time.Now().Add(100 * time.Millisecond)

	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error enqueueing: %v", err)
	}

	// Not due yet
	got, err := queue.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected scheduled task to stay hidden, got %+v", got)
	}

	// Once due, the next dequeue promotes it from the scheduled set
	time.Sleep(150 * time.Millisecond)

	got, err = queue.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected promoted task")
	}
	if got.ID != task.ID {
		t.Errorf("expected task ID %s, got %s", task.ID, got.ID)
	}
}

func TestQueue_GetTask_NotFound(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	_, err := queue.GetTask(context.Background(), "no-such-task")
	if err != domain.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueue_Stats(t *testing.T) {
	queue, _, cleanup := setupTestQueue(t)
	defer cleanup()

	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-2"} {
		if err := queue.Enqueue(ctx, createTestTask(userID)); err != nil {
			t.Fatalf("unexpected error enqueueing: %v", err)
		}
	}

	stats, err := queue.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error getting stats: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 pending tasks, got %d", stats.PendingCount)
	}
}

func TestQueue_Ping(t *testing.T) {
	queue, mr, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := queue.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}

	mr.Close()
	if err := queue.Ping(context.Background()); err == nil {
		t.Error("expected ping error after redis shutdown")
	}
}
