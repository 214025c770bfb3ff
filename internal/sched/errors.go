package sched

import "errors"

// Ошибки планировщика.
var (
	// ErrBatchNotFound — batch не найден в реестре.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchNotSettled — операция требует урегулированного batch.
	ErrBatchNotSettled = errors.New("batch is not settled")

	// ErrEmptyBatch — submit без единого task.
	ErrEmptyBatch = errors.New("batch has no tasks")

	// ErrQueueDisabled — очередь отключена, выдача прекращена.
	ErrQueueDisabled = errors.New("queue disabled")
)
