package domain

import (
	"time"

	"github.com/google/uuid"
)

// Batch — набор независимых tasks, отправленных и отслеживаемых вместе.
//
// Планировщик создаётся по одному на batch — общего глобального
// планировщика нет, batch'и не влияют друг на друга.
type Batch struct {
	// ID — уникальный идентификатор batch.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя batch (опционально).
	Name string `json:"name,omitempty"`

	// Config — параметры планировщика, фиксированы на время жизни batch.
	Config SchedulerConfig `json:"config"`

	// TaskCount — количество tasks в batch.
	TaskCount int `json:"task_count"`

	// Status — RUNNING или SETTLED.
	Status BatchStatus `json:"status"`

	// CreatedAt — время submit.
	CreatedAt time.Time `json:"created_at"`

	// SettledAt — время, когда последний task стал терминальным.
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// BatchSummary — итог batch по терминальным статусам.
// Суммы всегда сходятся: Completed+Failed+Cancelled равно числу
// терминальных tasks, даже если все упали.
type BatchSummary struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Total возвращает общее число учтённых tasks.
func (s BatchSummary) Total() int {
	return s.Completed + s.Failed + s.Cancelled
}

// BatchRecord — запись об урегулированном batch для архива.
// Это аудит итогов, а не персистентность очереди: по записи
// ничего не возобновляется.
type BatchRecord struct {
	Batch   Batch          `json:"batch"`
	Summary BatchSummary   `json:"summary"`
	Tasks   []TaskSnapshot `json:"tasks"`
}
