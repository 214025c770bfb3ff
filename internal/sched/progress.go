package sched

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// ProgressAggregator держит авторитетное состояние tasks одного batch.
//
// Все мутации — только через методы агрегатора, под мьютексом: внешний
// читатель никогда не видит полуобновлённый task. Переходы проверяются
// по state machine; из терминального статуса task не мутируется.
// Уведомления listener'у уходят после фиксации перехода, вне блокировки.
//
// Агрегатор же детектирует урегулирование: когда последний task стал
// терминальным, закрывается канал Settled и ровно один раз уходит
// BatchSettled.
type ProgressAggregator struct {
	batchID  uuid.UUID
	listener Listener

	mu        sync.RWMutex
	tasks     map[uuid.UUID]*domain.Task
	order     []*domain.Task
	terminal  int
	settled   bool
	settledAt time.Time

	settledCh chan struct{}
}

// NewProgressAggregator создаёт агрегатор для заданных tasks.
// Порядок списка — порядок submit; он сохраняется в снапшотах.
func NewProgressAggregator(batchID uuid.UUID, tasks []*domain.Task, listener Listener) *ProgressAggregator {
	if listener == nil {
		listener = NopListener{}
	}

	byID := make(map[uuid.UUID]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	return &ProgressAggregator{
		batchID:   batchID,
		listener:  listener,
		tasks:     byID,
		order:     tasks,
		settledCh: make(chan struct{}),
	}
}

// MarkRunning переводит task PENDING → RUNNING.
// Возвращает false, если переход невозможен (например, task уже
// отменён, пока стоял в очереди).
func (a *ProgressAggregator) MarkRunning(t *domain.Task) bool {
	a.mu.Lock()
	if t.Status != domain.TaskStatusPending {
		a.mu.Unlock()
		return false
	}
	old := t.Status
	t.MarkRunning()
	a.mu.Unlock()

	a.listener.TaskStateChanged(a.batchID, t.ID, old, domain.TaskStatusRunning)
	return true
}

// Complete переводит task RUNNING → COMPLETED.
func (a *ProgressAggregator) Complete(t *domain.Task) bool {
	return a.finish(t, domain.TaskStatusRunning, func(t *domain.Task) {
		t.MarkCompleted()
	})
}

// Fail переводит task RUNNING → FAILED с текстом ошибки.
func (a *ProgressAggregator) Fail(t *domain.Task, errMsg string) bool {
	return a.finish(t, domain.TaskStatusRunning, func(t *domain.Task) {
		t.MarkFailed(errMsg)
	})
}

// CancelTask переводит task в CANCELLED из любого нетерминального статуса.
func (a *ProgressAggregator) CancelTask(t *domain.Task) bool {
	a.mu.Lock()
	if t.Status.IsTerminal() {
		a.mu.Unlock()
		return false
	}
	old := t.Status
	t.MarkCancelled()
	settled := a.markTerminalLocked()
	a.mu.Unlock()

	a.emit(t, old, domain.TaskStatusCancelled, settled)
	return true
}

// RetryReset переводит task RUNNING → PENDING перед повторной попыткой:
// прогресс в 0, ошибка сохраняется как диагностика.
func (a *ProgressAggregator) RetryReset(t *domain.Task, errMsg string) bool {
	a.mu.Lock()
	if t.Status != domain.TaskStatusRunning {
		a.mu.Unlock()
		return false
	}
	old := t.Status
	t.ResetForRetry(errMsg)
	a.mu.Unlock()

	a.listener.TaskStateChanged(a.batchID, t.ID, old, domain.TaskStatusPending)
	return true
}

// CancelAllPending переводит все PENDING tasks в CANCELLED.
// Возвращает число отменённых. Используется контроллером отмены:
// эти tasks никогда не попадут в executor.
func (a *ProgressAggregator) CancelAllPending() int {
	a.mu.Lock()
	var cancelled []*domain.Task
	for _, t := range a.order {
		if t.Status == domain.TaskStatusPending {
			t.MarkCancelled()
			cancelled = append(cancelled, t)
		}
	}
	var settled bool
	for range cancelled {
		if a.markTerminalLocked() {
			settled = true
		}
	}
	a.mu.Unlock()

	for _, t := range cancelled {
		a.listener.TaskStateChanged(a.batchID, t.ID, domain.TaskStatusPending, domain.TaskStatusCancelled)
	}
	if settled {
		a.fireSettled()
	}
	return len(cancelled)
}

// SetProgress обновляет прогресс task'а. Применяется только в RUNNING;
// регресс внутри попытки игнорируется.
func (a *ProgressAggregator) SetProgress(taskID uuid.UUID, percent int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.tasks[taskID]
	if !ok || t.Status != domain.TaskStatusRunning {
		return
	}
	t.AdvanceProgress(percent)
}

// Snapshot возвращает срез состояния всех tasks в порядке submit.
func (a *ProgressAggregator) Snapshot() []domain.TaskSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := make([]domain.TaskSnapshot, len(a.order))
	for i, t := range a.order {
		snap[i] = t.Snapshot()
	}
	return snap
}

// Summary возвращает счётчики терминальных статусов.
func (a *ProgressAggregator) Summary() domain.BatchSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var s domain.BatchSummary
	for _, t := range a.order {
		switch t.Status {
		case domain.TaskStatusCompleted:
			s.Completed++
		case domain.TaskStatusFailed:
			s.Failed++
		case domain.TaskStatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// RunningCount возвращает число RUNNING tasks.
func (a *ProgressAggregator) RunningCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := 0
	for _, t := range a.order {
		if t.Status == domain.TaskStatusRunning {
			n++
		}
	}
	return n
}

// IsSettled возвращает true, когда все tasks терминальны.
func (a *ProgressAggregator) IsSettled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settled
}

// SettledAt возвращает время урегулирования (нулевое, если ещё нет).
func (a *ProgressAggregator) SettledAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settledAt
}

// Settled возвращает канал, закрываемый при урегулировании batch'а.
func (a *ProgressAggregator) Settled() <-chan struct{} {
	return a.settledCh
}

// finish выполняет терминальный переход из ожидаемого статуса.
func (a *ProgressAggregator) finish(t *domain.Task, from domain.TaskStatus, apply func(*domain.Task)) bool {
	a.mu.Lock()
	if t.Status != from {
		a.mu.Unlock()
		return false
	}
	old := t.Status
	apply(t)
	settled := a.markTerminalLocked()
	a.mu.Unlock()

	a.emit(t, old, t.Status, settled)
	return true
}

// markTerminalLocked учитывает ещё один терминальный task.
// Возвращает true ровно один раз — когда терминальными стали все.
func (a *ProgressAggregator) markTerminalLocked() bool {
	a.terminal++
	if a.terminal == len(a.order) && !a.settled {
		a.settled = true
		a.settledAt = time.Now()
		return true
	}
	return false
}

// emit рассылает уведомления после фиксации перехода.
func (a *ProgressAggregator) emit(t *domain.Task, old, new domain.TaskStatus, settled bool) {
	a.listener.TaskStateChanged(a.batchID, t.ID, old, new)
	if settled {
		a.fireSettled()
	}
}

// fireSettled закрывает канал урегулирования и шлёт BatchSettled.
func (a *ProgressAggregator) fireSettled() {
	close(a.settledCh)
	a.listener.BatchSettled(a.batchID, a.Summary())
}
