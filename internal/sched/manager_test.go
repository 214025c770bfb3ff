package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// memoryArchiver собирает архивные записи в памяти.
type memoryArchiver struct {
	mu      sync.Mutex
	records []domain.BatchRecord
}

func (a *memoryArchiver) ArchiveBatch(_ context.Context, rec domain.BatchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *memoryArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

func newTestManager(archiver Archiver) *Manager {
	return NewManager(ManagerConfig{
		Executor: newScriptExecutor(nil),
		Archiver: archiver,
		Defaults: domain.SchedulerConfig{
			MaxConcurrency: 2,
			MaxAttempts:    2,
			BackoffBase:    time.Millisecond,
		},
	})
}

func submitItems(n int) []SubmitItem {
	items := make([]SubmitItem, n)
	for i := range items {
		items[i] = SubmitItem{Type: "delay", Payload: map[string]any{"duration_ms": 1}}
	}
	return items
}

func TestManager_SubmitAndSettle(t *testing.T) {
	archiver := &memoryArchiver{}
	m := newTestManager(archiver)
	defer m.Close()

	batchID, err := m.Submit("upload-docs", submitItems(3), nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	scheduler, err := m.Get(batchID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	waitSettled(t, scheduler, 5*time.Second)

	snap, err := m.Snapshot(batchID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(snap))
	}
	for _, ts := range snap {
		if ts.Status != domain.TaskStatusCompleted {
			t.Errorf("expected COMPLETED, got %s", ts.Status)
		}
	}

	// Архив получает запись урегулированного batch'а
	waitFor(t, 5*time.Second, func() bool { return archiver.count() == 1 }, "batch archived")
}

func TestManager_SubmitEmptyBatch(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	if _, err := m.Submit("empty", nil, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestManager_UnknownBatch(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	if _, err := m.Snapshot(uuid.New()); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Snapshot: expected ErrBatchNotFound, got %v", err)
	}
	if err := m.Cancel(uuid.New()); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Cancel: expected ErrBatchNotFound, got %v", err)
	}
	if err := m.Dismiss(uuid.New()); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Dismiss: expected ErrBatchNotFound, got %v", err)
	}
}

func TestManager_DismissRequiresSettled(t *testing.T) {
	m := NewManager(ManagerConfig{
		Executor: newScriptExecutor(func(ctx context.Context, _ *domain.Task, _ int) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		Defaults: domain.SchedulerConfig{MaxConcurrency: 1},
	})
	defer m.Close()

	batchID, err := m.Submit("slow", submitItems(1), nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := m.Dismiss(batchID); !errors.Is(err, ErrBatchNotSettled) {
		t.Fatalf("expected ErrBatchNotSettled, got %v", err)
	}

	scheduler, _ := m.Get(batchID)
	scheduler.Cancel()
	waitSettled(t, scheduler, 5*time.Second)

	if err := m.Dismiss(batchID); err != nil {
		t.Fatalf("Dismiss after settle: %v", err)
	}

	// Планировщик больше не держит ссылок на batch
	if _, err := m.Get(batchID); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("dismissed batch should be gone, got %v", err)
	}
}

func TestManager_ConfigOverride(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	override := &domain.SchedulerConfig{MaxConcurrency: 7, MaxAttempts: 9}
	batchID, err := m.Submit("custom", submitItems(1), override)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	scheduler, _ := m.Get(batchID)
	cfg := scheduler.Batch().Config
	if cfg.MaxConcurrency != 7 {
		t.Errorf("expected override max_concurrency=7, got %d", cfg.MaxConcurrency)
	}
	if cfg.MaxAttempts != 9 {
		t.Errorf("expected override max_attempts=9, got %d", cfg.MaxAttempts)
	}
}

func TestManager_ListNewestFirst(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	first, _ := m.Submit("first", submitItems(1), nil)
	time.Sleep(5 * time.Millisecond)
	second, _ := m.Submit("second", submitItems(1), nil)

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Error("batches should be ordered newest first")
	}
}
