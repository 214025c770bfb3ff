package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
	"github.com/cain76/finderskeepers-v2-sub001/internal/sched"
)

// Batch DTOs

// SubmitBatchRequest — запрос на запуск batch'а.
type SubmitBatchRequest struct {
	Name   string              `json:"name,omitempty"`
	Config *SchedulerConfigDTO `json:"config,omitempty"`
	Tasks  []SubmitTaskRequest `json:"tasks"`
}

// SubmitTaskRequest — одна задача в запросе.
type SubmitTaskRequest struct {
	Name    string         `json:"name,omitempty"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// SchedulerConfigDTO — параметры планировщика в API.
// Интервалы в миллисекундах; нулевые поля получают дефолты.
type SchedulerConfigDTO struct {
	MaxConcurrency     int   `json:"max_concurrency,omitempty"`
	MinStartIntervalMS int64 `json:"min_start_interval_ms,omitempty"`
	MaxAttempts        int   `json:"max_attempts,omitempty"`
	BackoffBaseMS      int64 `json:"backoff_base_ms,omitempty"`
	BackoffCapMS       int64 `json:"backoff_cap_ms,omitempty"`
}

// ToDomain конвертирует DTO в domain.SchedulerConfig.
func (d *SchedulerConfigDTO) ToDomain() domain.SchedulerConfig {
	return domain.SchedulerConfig{
		MaxConcurrency:   d.MaxConcurrency,
		MinStartInterval: time.Duration(d.MinStartIntervalMS) * time.Millisecond,
		MaxAttempts:      d.MaxAttempts,
		BackoffBase:      time.Duration(d.BackoffBaseMS) * time.Millisecond,
		BackoffCap:       time.Duration(d.BackoffCapMS) * time.Millisecond,
	}
}

// SchedulerConfigFromDomain конвертирует domain.SchedulerConfig в DTO.
func SchedulerConfigFromDomain(c domain.SchedulerConfig) SchedulerConfigDTO {
	return SchedulerConfigDTO{
		MaxConcurrency:     c.MaxConcurrency,
		MinStartIntervalMS: c.MinStartInterval.Milliseconds(),
		MaxAttempts:        c.MaxAttempts,
		BackoffBaseMS:      c.BackoffBase.Milliseconds(),
		BackoffCapMS:       c.BackoffCap.Milliseconds(),
	}
}

// BatchResponse — ответ с batch.
type BatchResponse struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name,omitempty"`
	Config    SchedulerConfigDTO `json:"config"`
	TaskCount int                `json:"task_count"`
	Status    domain.BatchStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	SettledAt *time.Time         `json:"settled_at,omitempty"`
}

// BatchFromDomain конвертирует domain.Batch в BatchResponse.
func BatchFromDomain(b domain.Batch) BatchResponse {
	return BatchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Config:    SchedulerConfigFromDomain(b.Config),
		TaskCount: b.TaskCount,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		SettledAt: b.SettledAt,
	}
}

// BatchDetailResponse — batch вместе с итогами по статусам.
type BatchDetailResponse struct {
	BatchResponse
	Summary domain.BatchSummary `json:"summary"`
}

// BatchRecordResponse — архивная запись batch'а.
type BatchRecordResponse struct {
	BatchResponse
	Summary domain.BatchSummary   `json:"summary"`
	Tasks   []domain.TaskSnapshot `json:"tasks,omitempty"`
}

// BatchRecordFromDomain конвертирует domain.BatchRecord в ответ.
func BatchRecordFromDomain(rec domain.BatchRecord) BatchRecordResponse {
	return BatchRecordResponse{
		BatchResponse: BatchFromDomain(rec.Batch),
		Summary:       rec.Summary,
		Tasks:         rec.Tasks,
	}
}

// ToSubmitItems конвертирует запрос в элементы submit.
func (r *SubmitBatchRequest) ToSubmitItems() []sched.SubmitItem {
	items := make([]sched.SubmitItem, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		items = append(items, sched.SubmitItem{
			Name:    t.Name,
			Type:    t.Type,
			Payload: t.Payload,
		})
	}
	return items
}
