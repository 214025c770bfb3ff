package sched

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// recordingListener собирает уведомления для проверок.
type recordingListener struct {
	mu          sync.Mutex
	transitions []string
	settled     []domain.BatchSummary
}

func (l *recordingListener) TaskStateChanged(_, taskID uuid.UUID, old, new domain.TaskStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, fmt.Sprintf("%s->%s", old, new))
}

func (l *recordingListener) BatchSettled(_ uuid.UUID, summary domain.BatchSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settled = append(l.settled, summary)
}

func (l *recordingListener) settledCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.settled)
}

func newAggregator(n int, listener Listener) (*ProgressAggregator, []*domain.Task) {
	batchID := uuid.New()
	tasks := make([]*domain.Task, n)
	for i := range tasks {
		tasks[i] = &domain.Task{
			ID:          uuid.New(),
			BatchID:     batchID,
			Seq:         i,
			Status:      domain.TaskStatusPending,
			MaxAttempts: 3,
		}
	}
	return NewProgressAggregator(batchID, tasks, listener), tasks
}

func TestProgressAggregator_HappyTransitions(t *testing.T) {
	listener := &recordingListener{}
	agg, tasks := newAggregator(1, listener)
	task := tasks[0]

	if !agg.MarkRunning(task) {
		t.Fatal("PENDING -> RUNNING should succeed")
	}
	agg.SetProgress(task.ID, 60)
	if !agg.Complete(task) {
		t.Fatal("RUNNING -> COMPLETED should succeed")
	}

	snap := agg.Snapshot()
	if snap[0].Status != domain.TaskStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", snap[0].Status)
	}
	if snap[0].Progress != 100 {
		t.Errorf("expected progress 100, got %d", snap[0].Progress)
	}

	want := []string{"PENDING->RUNNING", "RUNNING->COMPLETED"}
	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, listener.transitions)
	}
	for i := range want {
		if listener.transitions[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, listener.transitions)
		}
	}
}

func TestProgressAggregator_TerminalIsFinal(t *testing.T) {
	agg, tasks := newAggregator(1, nil)
	task := tasks[0]

	agg.MarkRunning(task)
	agg.Complete(task)

	// Терминальный task не мутируется
	if agg.MarkRunning(task) {
		t.Error("COMPLETED task should not re-enter RUNNING")
	}
	if agg.Fail(task, "late") {
		t.Error("COMPLETED task should not become FAILED")
	}
	if agg.CancelTask(task) {
		t.Error("COMPLETED task should not become CANCELLED")
	}

	agg.SetProgress(task.ID, 1)
	if snap := agg.Snapshot(); snap[0].Progress != 100 {
		t.Errorf("terminal progress should stay 100, got %d", snap[0].Progress)
	}
}

func TestProgressAggregator_SetProgress_OnlyWhileRunning(t *testing.T) {
	agg, tasks := newAggregator(1, nil)
	task := tasks[0]

	agg.SetProgress(task.ID, 50) // ещё PENDING
	if snap := agg.Snapshot(); snap[0].Progress != 0 {
		t.Errorf("progress should not move while PENDING, got %d", snap[0].Progress)
	}

	agg.MarkRunning(task)
	agg.SetProgress(task.ID, 50)
	agg.SetProgress(task.ID, 30) // регресс игнорируется
	if snap := agg.Snapshot(); snap[0].Progress != 50 {
		t.Errorf("expected 50, got %d", snap[0].Progress)
	}
}

func TestProgressAggregator_RetryReset(t *testing.T) {
	agg, tasks := newAggregator(1, nil)
	task := tasks[0]

	agg.MarkRunning(task)
	agg.SetProgress(task.ID, 70)
	if !agg.RetryReset(task, "HTTP 503") {
		t.Fatal("RUNNING -> PENDING should succeed on retryable failure")
	}

	snap := agg.Snapshot()
	if snap[0].Status != domain.TaskStatusPending {
		t.Errorf("expected PENDING, got %s", snap[0].Status)
	}
	if snap[0].Progress != 0 {
		t.Errorf("retry should reset progress, got %d", snap[0].Progress)
	}
	if snap[0].LastError != "HTTP 503" {
		t.Errorf("diagnostic error should survive, got %q", snap[0].LastError)
	}
	if agg.IsSettled() {
		t.Error("retrying task is not terminal, batch must not settle")
	}
}

func TestProgressAggregator_SettlesExactlyOnce(t *testing.T) {
	listener := &recordingListener{}
	agg, tasks := newAggregator(3, listener)

	agg.MarkRunning(tasks[0])
	agg.Complete(tasks[0])
	agg.MarkRunning(tasks[1])
	agg.Fail(tasks[1], "boom")

	if agg.IsSettled() {
		t.Fatal("batch must not settle with a PENDING task")
	}
	select {
	case <-agg.Settled():
		t.Fatal("Settled channel closed too early")
	default:
	}

	agg.CancelTask(tasks[2])

	if !agg.IsSettled() {
		t.Fatal("batch should settle once all tasks are terminal")
	}
	select {
	case <-agg.Settled():
	default:
		t.Fatal("Settled channel should be closed")
	}

	if listener.settledCount() != 1 {
		t.Fatalf("BatchSettled should fire exactly once, got %d", listener.settledCount())
	}

	summary := agg.Summary()
	if summary.Completed != 1 || summary.Failed != 1 || summary.Cancelled != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if agg.SettledAt().IsZero() {
		t.Error("SettledAt should be recorded")
	}
}

func TestProgressAggregator_CancelAllPending(t *testing.T) {
	agg, tasks := newAggregator(4, nil)

	agg.MarkRunning(tasks[0]) // RUNNING не трогаем
	agg.MarkRunning(tasks[1])
	agg.Complete(tasks[1]) // терминальный не трогаем

	if n := agg.CancelAllPending(); n != 2 {
		t.Fatalf("expected 2 cancelled, got %d", n)
	}

	snap := agg.Snapshot()
	if snap[0].Status != domain.TaskStatusRunning {
		t.Errorf("running task should stay RUNNING, got %s", snap[0].Status)
	}
	if snap[1].Status != domain.TaskStatusCompleted {
		t.Errorf("completed task should stay COMPLETED, got %s", snap[1].Status)
	}
	for _, i := range []int{2, 3} {
		if snap[i].Status != domain.TaskStatusCancelled {
			t.Errorf("task %d should be CANCELLED, got %s", i, snap[i].Status)
		}
	}
}

func TestProgressAggregator_SnapshotOrderStable(t *testing.T) {
	agg, tasks := newAggregator(5, nil)

	// Завершаем в произвольном порядке
	for _, i := range []int{3, 0, 4, 1, 2} {
		agg.MarkRunning(tasks[i])
		agg.Complete(tasks[i])
	}

	snap := agg.Snapshot()
	for i := range snap {
		if snap[i].TaskID != tasks[i].ID {
			t.Fatalf("snapshot order must follow submission order, position %d mismatched", i)
		}
	}
}

func TestProgressAggregator_ConcurrentReaders(t *testing.T) {
	agg, tasks := newAggregator(8, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, task := range tasks {
			agg.MarkRunning(task)
			for p := 0; p <= 100; p += 20 {
				agg.SetProgress(task.ID, p)
			}
			agg.Complete(task)
		}
	}()

	// Читатели не должны видеть полуобновлённых tasks
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("writer did not finish")
		default:
		}

		for _, s := range agg.Snapshot() {
			if s.Status == domain.TaskStatusCompleted && s.Progress != 100 {
				t.Fatalf("half-updated task observed: %+v", s)
			}
		}
	}
}
