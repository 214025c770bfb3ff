package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
	"github.com/cain76/finderskeepers-v2-sub001/internal/executor"
)

// Scheduler обрабатывает один batch: ограничивает конкурентность,
// троттлит старты, делает retry с backoff и поддерживает отмену.
//
// По одному экземпляру на batch. Цикл диспетчеризации один: он
// забирает голову очереди, дожидается гейта и limiter'а (обе проверки
// — до перехода task в RUNNING) и запускает попытку в горутине.
// Исход попытки возвращается в агрегатор; retryable ошибка после
// backoff-паузы кладёт task обратно в хвост очереди — трамплин вместо
// рекурсии, глубина стека от числа retry не зависит.
type Scheduler struct {
	batch    domain.Batch
	cfg      domain.SchedulerConfig
	tasks    []*domain.Task
	queue    *TaskQueue
	gate     *ConcurrencyGate
	limiter  *RateLimiter
	progress *ProgressAggregator
	cancels  *CancelRegistry
	exec     executor.Executor
	logger   *slog.Logger

	ctx        context.Context
	cancelCtx  context.CancelFunc
	cancelOnce sync.Once
	wg         sync.WaitGroup
}

// New создаёт Scheduler для batch'а с его tasks.
// Конфигурация берётся из batch.Config (нормализованной).
func New(batch domain.Batch, tasks []*domain.Task, exec executor.Executor, listener Listener, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := batch.Config.Normalized()
	batch.Config = cfg
	batch.TaskCount = len(tasks)
	batch.Status = domain.BatchStatusRunning

	return &Scheduler{
		batch:    batch,
		cfg:      cfg,
		tasks:    tasks,
		queue:    NewTaskQueue(),
		gate:     NewConcurrencyGate(cfg.MaxConcurrency),
		limiter:  NewRateLimiter(cfg.MinStartInterval),
		progress: NewProgressAggregator(batch.ID, tasks, listener),
		cancels:  NewCancelRegistry(),
		exec:     exec,
		logger:   logger.With("batch_id", batch.ID),
	}
}

// Start запускает обработку batch'а. Возвращает управление сразу;
// выполнение идёт асинхронно. Отмена родительского контекста
// эквивалентна Cancel.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancelCtx = context.WithCancel(ctx)

	s.logger.Info("batch started",
		"tasks", len(s.tasks),
		"max_concurrency", s.cfg.MaxConcurrency,
		"min_start_interval", s.cfg.MinStartInterval,
		"max_attempts", s.cfg.MaxAttempts,
	)

	s.queue.Enqueue(s.tasks...)

	// После урегулирования выдача прекращается и цикл завершается.
	go func() {
		select {
		case <-s.progress.Settled():
			s.queue.Disable()
		case <-s.ctx.Done():
			s.Cancel()
		}
	}()

	s.wg.Add(1)
	go s.dispatchLoop()
}

// dispatchLoop — единственный цикл диспетчеризации batch'а.
func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	for {
		task, err := s.queue.Next(s.ctx)
		if err != nil {
			return
		}

		if err := s.gate.Admit(s.ctx); err != nil {
			return
		}
		if err := s.limiter.Throttle(s.ctx); err != nil {
			s.gate.Release()
			return
		}

		// Task мог быть отменён, пока стоял в очереди
		if !s.progress.MarkRunning(task) {
			s.gate.Release()
			continue
		}

		s.logger.Info("task started",
			"task_id", task.ID,
			"type", task.Type,
			"attempt", task.Attempt,
		)

		s.wg.Add(1)
		go s.runAttempt(task)
	}
}

// runAttempt выполняет одну попытку task'а и обрабатывает исход.
func (s *Scheduler) runAttempt(task *domain.Task) {
	defer s.wg.Done()

	attemptCtx, cancel := context.WithCancel(s.ctx)
	s.cancels.Add(task.ID, cancel)

	onProgress := func(percent int) {
		s.progress.SetProgress(task.ID, percent)
	}

	_, err := s.exec.Execute(attemptCtx, task, onProgress)

	cancel()
	s.cancels.Remove(task.ID)
	s.gate.Release()

	s.settleAttempt(task, err)
}

// settleAttempt маршрутизирует исход попытки:
// успех — COMPLETED; abort — CANCELLED без расхода retry-бюджета;
// retryable ошибка при остатке бюджета — backoff и хвост очереди;
// иначе — FAILED.
func (s *Scheduler) settleAttempt(task *domain.Task, err error) {
	switch {
	case err == nil:
		s.progress.Complete(task)
		s.logger.Info("task completed",
			"task_id", task.ID,
			"attempt", task.Attempt,
		)

	case executor.IsAbort(err) || s.ctx.Err() != nil:
		s.progress.CancelTask(task)
		s.logger.Info("task cancelled",
			"task_id", task.ID,
			"attempt", task.Attempt,
		)

	case executor.IsRetryable(err) && task.CanRetry():
		delay := Backoff(task.Attempt, s.cfg.BackoffBase, s.cfg.BackoffCap)
		s.progress.RetryReset(task, err.Error())
		s.logger.Warn("task attempt failed, retrying",
			"task_id", task.ID,
			"attempt", task.Attempt,
			"delay", delay,
			"error", err,
		)

		s.wg.Add(1)
		go s.requeueAfter(task, delay)

	default:
		s.progress.Fail(task, err.Error())
		s.logger.Warn("task failed",
			"task_id", task.ID,
			"attempt", task.Attempt,
			"retryable", executor.IsRetryable(err),
			"error", err,
		)
	}
}

// requeueAfter выдерживает backoff-паузу и возвращает task в хвост
// очереди. Пауза отменяема: при отмене batch'а task переходит в
// CANCELLED (если контроллер отмены ещё не перевёл его сам).
func (s *Scheduler) requeueAfter(task *domain.Task, delay time.Duration) {
	defer s.wg.Done()

	select {
	case <-time.After(delay):
		s.queue.Requeue(task)
	case <-s.ctx.Done():
		s.progress.CancelTask(task)
	}
}

// Cancel отменяет batch. Идемпотентна: повторный вызов — no-op.
//
// Порядок: очередь отключается (новые tasks больше не стартуют),
// все PENDING tasks сразу становятся CANCELLED, не попадая в executor,
// выполняющимся доставляется abort-сигнал. Каждый RUNNING task
// завершится COMPLETED (успел до abort) или CANCELLED — навсегда в
// RUNNING никто не останется.
func (s *Scheduler) Cancel() {
	s.cancelOnce.Do(func() {
		s.logger.Info("cancelling batch")

		s.queue.Disable()
		cancelled := s.progress.CancelAllPending()
		s.cancels.CancelAll()
		if s.cancelCtx != nil {
			s.cancelCtx()
		}

		s.logger.Info("batch cancel requested",
			"cancelled_pending", cancelled,
			"in_flight", s.gate.InFlight(),
		)
	})
}

// Snapshot возвращает срез состояния всех tasks в порядке submit.
func (s *Scheduler) Snapshot() []domain.TaskSnapshot {
	return s.progress.Snapshot()
}

// Summary возвращает счётчики терминальных статусов.
func (s *Scheduler) Summary() domain.BatchSummary {
	return s.progress.Summary()
}

// Batch возвращает метаданные batch'а с актуальным статусом.
func (s *Scheduler) Batch() domain.Batch {
	b := s.batch
	if s.progress.IsSettled() {
		b.Status = domain.BatchStatusSettled
		settledAt := s.progress.SettledAt()
		b.SettledAt = &settledAt
	}
	return b
}

// IsSettled возвращает true, когда все tasks терминальны.
func (s *Scheduler) IsSettled() bool {
	return s.progress.IsSettled()
}

// Settled возвращает канал, закрываемый при урегулировании batch'а.
func (s *Scheduler) Settled() <-chan struct{} {
	return s.progress.Settled()
}

// Record собирает архивную запись урегулированного batch'а.
func (s *Scheduler) Record() domain.BatchRecord {
	return domain.BatchRecord{
		Batch:   s.Batch(),
		Summary: s.Summary(),
		Tasks:   s.Snapshot(),
	}
}
