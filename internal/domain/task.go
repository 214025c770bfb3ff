package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — одна независимая единица работы внутри batch.
//
// Task создаётся при submit batch'а и мутируется только планировщиком
// (через ProgressAggregator). Payload для планировщика непрозрачен —
// его интерпретирует executor соответствующего типа.
type Task struct {
	// ID — уникальный идентификатор task (стабилен на все попытки).
	ID uuid.UUID `json:"id"`

	// BatchID — ссылка на родительский batch.
	BatchID uuid.UUID `json:"batch_id"`

	// Seq — позиция в порядке submit (для стабильной сортировки snapshot'ов).
	Seq int `json:"seq"`

	// Name — человекочитаемое имя (имя файла, адрес probe и т.п.).
	Name string `json:"name,omitempty"`

	// Type — тип task: "http", "delay". Определяет executor.
	Type string `json:"type"`

	// Payload — входные данные для executor'а.
	Payload map[string]any `json:"payload,omitempty"`

	// Attempt — номер попытки. 0 до первого запуска,
	// увеличивается при каждом MarkRunning. Никогда не превышает MaxAttempts.
	Attempt int `json:"attempt"`

	// MaxAttempts — потолок попыток для этого task.
	MaxAttempts int `json:"max_attempts"`

	// Status — текущий статус.
	Status TaskStatus `json:"status"`

	// Progress — прогресс текущей попытки, 0..100.
	// Монотонно не убывает внутри попытки, сбрасывается в 0 при retry.
	Progress int `json:"progress"`

	// LastError — текст последней ошибки. Заполнен для FAILED
	// и как диагностика между retry-попытками.
	LastError string `json:"last_error,omitempty"`

	// StartedAt — время начала последней попытки.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время достижения терминального статуса.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания (submit batch'а).
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность последней попытки.
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}

// IsFinished возвращает true, если task терминален.
func (t *Task) IsFinished() bool {
	return t.Status.IsTerminal()
}

// MarkRunning переводит task в RUNNING и начинает новую попытку.
func (t *Task) MarkRunning() {
	now := time.Now()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
	t.Attempt++
}

// MarkCompleted переводит task в COMPLETED.
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.FinishedAt = &now
	t.Progress = 100
	t.LastError = ""
}

// MarkFailed переводит task в FAILED с текстом ошибки.
func (t *Task) MarkFailed(errMsg string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.FinishedAt = &now
	t.LastError = errMsg
}

// MarkCancelled переводит task в CANCELLED.
func (t *Task) MarkCancelled() {
	now := time.Now()
	t.Status = TaskStatusCancelled
	t.FinishedAt = &now
}

// ResetForRetry подготавливает task к повторной попытке:
// статус обратно в PENDING, прогресс в 0. Attempt не трогаем —
// он увеличится при следующем MarkRunning. LastError сохраняется
// как диагностика до следующей попытки.
func (t *Task) ResetForRetry(errMsg string) {
	t.Status = TaskStatusPending
	t.Progress = 0
	t.StartedAt = nil
	t.LastError = errMsg
}

// CanRetry проверяет, остался ли retry-бюджет.
func (t *Task) CanRetry() bool {
	return t.Attempt < t.MaxAttempts
}

// AdvanceProgress обновляет прогресс попытки.
// Значение клампится в 0..100; регресс игнорируется — снаружи
// прогресс монотонен внутри одной попытки.
func (t *Task) AdvanceProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > t.Progress {
		t.Progress = percent
	}
}

// TaskSnapshot — неизменяемый срез состояния task для внешних читателей.
type TaskSnapshot struct {
	TaskID    uuid.UUID  `json:"task_id"`
	Name      string     `json:"name,omitempty"`
	Type      string     `json:"type"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
	Attempt   int        `json:"attempt"`
	LastError string     `json:"last_error,omitempty"`
}

// Snapshot возвращает срез текущего состояния task.
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		TaskID:    t.ID,
		Name:      t.Name,
		Type:      t.Type,
		Status:    t.Status,
		Progress:  t.Progress,
		Attempt:   t.Attempt,
		LastError: t.LastError,
	}
}
