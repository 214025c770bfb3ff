package sched

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// TaskQueue — FIFO-очередь готовых к запуску tasks одного batch.
//
// Политика порядка явная и детерминированная: Enqueue добавляет в хвост,
// сохраняя порядок submit; retry-задачи возвращаются тоже в хвост
// (Requeue) и конкурируют наравне с ещё не стартовавшими, не прыгая
// вперёд. Next отдаёт голову; решение «можно ли стартовать сейчас»
// (гейт конкурентности + rate limiter) принимает цикл диспетчеризации
// до перевода task в RUNNING.
//
// Disable используется при отмене: отключённая очередь ничего не
// выдаёт и молча игнорирует последующие вставки.
type TaskQueue struct {
	mu       sync.Mutex
	items    *linkedlistqueue.Queue
	disabled bool

	// notify будит единственного ожидающего потребителя (цикл
	// диспетчеризации) после вставки или Disable.
	notify chan struct{}
}

// NewTaskQueue создаёт пустую очередь.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		items:  linkedlistqueue.New(),
		notify: make(chan struct{}, 1),
	}
}

// Enqueue добавляет tasks в хвост, сохраняя порядок списка.
func (q *TaskQueue) Enqueue(tasks ...*domain.Task) {
	q.mu.Lock()
	if !q.disabled {
		for _, t := range tasks {
			q.items.Enqueue(t)
		}
	}
	q.mu.Unlock()
	q.wake()
}

// Requeue возвращает retry-задачу в хвост очереди.
func (q *TaskQueue) Requeue(task *domain.Task) {
	q.Enqueue(task)
}

// Next блокируется до появления головы очереди и отдаёт её.
// Возвращает ErrQueueDisabled после Disable и ctx.Err() при отмене
// контекста.
func (q *TaskQueue) Next(ctx context.Context) (*domain.Task, error) {
	for {
		q.mu.Lock()
		if q.disabled {
			q.mu.Unlock()
			return nil, ErrQueueDisabled
		}
		if v, ok := q.items.Dequeue(); ok {
			q.mu.Unlock()
			return v.(*domain.Task), nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len возвращает текущую длину очереди.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}

// Disable отключает очередь: Next перестаёт выдавать tasks,
// вставки игнорируются. Повторный вызов — no-op.
func (q *TaskQueue) Disable() {
	q.mu.Lock()
	q.disabled = true
	q.items.Clear()
	q.mu.Unlock()
	q.wake()
}

// wake будит ожидающего потребителя, не блокируясь.
func (q *TaskQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
