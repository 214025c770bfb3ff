package sched

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
	"github.com/cain76/finderskeepers-v2-sub001/internal/executor"
)

// archiveTimeout — потолок на запись архива одного batch'а.
const archiveTimeout = 10 * time.Second

// Archiver записывает итог урегулированного batch'а в архив.
// Ошибка архивации логируется и не влияет на сам batch.
type Archiver interface {
	ArchiveBatch(ctx context.Context, rec domain.BatchRecord) error
}

// SubmitItem — один элемент batch'а при submit.
type SubmitItem struct {
	// Name — человекочитаемое имя (опционально).
	Name string

	// Type — тип task: "http", "delay".
	Type string

	// Payload — входные данные executor'а.
	Payload map[string]any
}

// Manager — реестр batch'ей и внешний интерфейс планировщика:
// submit, snapshot, cancel, dismiss. На каждый batch создаётся свой
// Scheduler; batch_id — ключ партиционирования всего состояния.
type Manager struct {
	exec     executor.Executor
	listener Listener
	archiver Archiver
	defaults domain.SchedulerConfig
	logger   *slog.Logger

	ctx       context.Context
	cancelCtx context.CancelFunc

	mu      sync.RWMutex
	batches map[uuid.UUID]*Scheduler
}

// ManagerConfig — конфигурация Manager.
type ManagerConfig struct {
	// Executor — исполнитель попыток (обычно *executor.Registry).
	Executor executor.Executor

	// Listener — получатель уведомлений (опционально).
	Listener Listener

	// Archiver — архив урегулированных batch'ей (опционально).
	Archiver Archiver

	// Defaults — параметры планировщика, если submit их не переопределил.
	Defaults domain.SchedulerConfig

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// NewManager создаёт Manager.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	listener := cfg.Listener
	if listener == nil {
		listener = NopListener{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		exec:      cfg.Executor,
		listener:  listener,
		archiver:  cfg.Archiver,
		defaults:  cfg.Defaults.Normalized(),
		logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
		batches:   make(map[uuid.UUID]*Scheduler),
	}
}

// Submit создаёт batch из items и запускает его обработку.
// Возвращает batch_id сразу; выполнение идёт асинхронно.
// Override, если не nil, подменяет параметры планировщика по умолчанию.
func (m *Manager) Submit(name string, items []SubmitItem, override *domain.SchedulerConfig) (uuid.UUID, error) {
	if len(items) == 0 {
		return uuid.Nil, ErrEmptyBatch
	}

	cfg := m.defaults
	if override != nil {
		cfg = override.Normalized()
	}

	batch := domain.Batch{
		ID:        uuid.New(),
		Name:      name,
		Config:    cfg,
		CreatedAt: time.Now(),
	}

	tasks := make([]*domain.Task, len(items))
	for i, item := range items {
		tasks[i] = &domain.Task{
			ID:          uuid.New(),
			BatchID:     batch.ID,
			Seq:         i,
			Name:        item.Name,
			Type:        item.Type,
			Payload:     item.Payload,
			MaxAttempts: cfg.MaxAttempts,
			Status:      domain.TaskStatusPending,
			CreatedAt:   batch.CreatedAt,
		}
	}

	scheduler := New(batch, tasks, m.exec, m.listener, m.logger)

	m.mu.Lock()
	m.batches[batch.ID] = scheduler
	m.mu.Unlock()

	scheduler.Start(m.ctx)

	if m.archiver != nil {
		go m.archiveWhenSettled(scheduler)
	}

	m.logger.Info("batch submitted",
		"batch_id", batch.ID,
		"name", name,
		"tasks", len(tasks),
	)

	return batch.ID, nil
}

// Get возвращает Scheduler batch'а.
func (m *Manager) Get(batchID uuid.UUID) (*Scheduler, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scheduler, ok := m.batches[batchID]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return scheduler, nil
}

// Snapshot возвращает неблокирующий point-in-time срез tasks batch'а.
func (m *Manager) Snapshot(batchID uuid.UUID) ([]domain.TaskSnapshot, error) {
	scheduler, err := m.Get(batchID)
	if err != nil {
		return nil, err
	}
	return scheduler.Snapshot(), nil
}

// Cancel запрашивает отмену batch'а. Ack немедленный; завершение
// отмены наблюдается по snapshot'ам, достигшим все-терминального
// состояния. Идемпотентна.
func (m *Manager) Cancel(batchID uuid.UUID) error {
	scheduler, err := m.Get(batchID)
	if err != nil {
		return err
	}
	scheduler.Cancel()
	return nil
}

// Dismiss удаляет урегулированный batch из реестра: планировщик
// больше не держит ссылок. Для неурегулированного batch'а —
// ErrBatchNotSettled.
func (m *Manager) Dismiss(batchID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scheduler, ok := m.batches[batchID]
	if !ok {
		return ErrBatchNotFound
	}
	if !scheduler.IsSettled() {
		return ErrBatchNotSettled
	}

	delete(m.batches, batchID)
	m.logger.Info("batch dismissed", "batch_id", batchID)
	return nil
}

// List возвращает метаданные всех batch'ей, новые первыми.
func (m *Manager) List() []domain.Batch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]domain.Batch, 0, len(m.batches))
	for _, scheduler := range m.batches {
		list = append(list, scheduler.Batch())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Close отменяет все активные batch'и. Используется при остановке
// сервиса.
func (m *Manager) Close() {
	m.mu.RLock()
	schedulers := make([]*Scheduler, 0, len(m.batches))
	for _, s := range m.batches {
		schedulers = append(schedulers, s)
	}
	m.mu.RUnlock()

	for _, s := range schedulers {
		s.Cancel()
	}
	m.cancelCtx()
}

// archiveWhenSettled ждёт урегулирования batch'а и пишет запись в архив.
func (m *Manager) archiveWhenSettled(scheduler *Scheduler) {
	select {
	case <-scheduler.Settled():
	case <-m.ctx.Done():
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	rec := scheduler.Record()
	if err := m.archiver.ArchiveBatch(ctx, rec); err != nil {
		m.logger.Error("failed to archive batch",
			"batch_id", rec.Batch.ID,
			"error", err,
		)
	}
}
