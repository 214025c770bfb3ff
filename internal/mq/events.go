package mq

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
	"github.com/cain76/finderskeepers-v2-sub001/internal/sched"
)

// publishTimeout ограничивает время публикации одного события,
// чтобы зависший брокер не блокировал планировщик.
const publishTimeout = 5 * time.Second

// EventListener транслирует уведомления планировщика в события RabbitMQ.
// Реализует sched.Listener. Ошибки публикации логируются, но не влияют
// на выполнение батча: очередь событий — best effort.
type EventListener struct {
	pub    *Publisher
	logger *slog.Logger
}

// NewEventListener создаёт адаптер планировщик → RabbitMQ.
func NewEventListener(pub *Publisher, logger *slog.Logger) *EventListener {
	return &EventListener{pub: pub, logger: logger}
}

var _ sched.Listener = (*EventListener)(nil)

// TaskStateChanged публикует событие task.state_changed.
func (l *EventListener) TaskStateChanged(batchID, taskID uuid.UUID, oldStatus, newStatus domain.TaskStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := l.pub.PublishTaskStateChanged(ctx, TaskStateChangedPayload{
		BatchID:   batchID,
		TaskID:    taskID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
	if err != nil {
		l.logger.Warn("failed to publish task state change",
			"batch_id", batchID,
			"task_id", taskID,
			"error", err,
		)
	}
}

// BatchSettled публикует событие batch.settled.
func (l *EventListener) BatchSettled(batchID uuid.UUID, summary domain.BatchSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := l.pub.PublishBatchSettled(ctx, BatchSettledPayload{
		BatchID:   batchID,
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Cancelled: summary.Cancelled,
	})
	if err != nil {
		l.logger.Warn("failed to publish batch settled event",
			"batch_id", batchID,
			"error", err,
		)
	}
}
