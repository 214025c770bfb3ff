package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// SubmitBatch запускает новый batch.
// POST /api/v1/batches
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	for i, t := range req.Tasks {
		if strings.TrimSpace(t.Type) == "" {
			BadRequest(w, fmt.Sprintf("tasks[%d]: type is required", i))
			return
		}
	}

	var override *domain.SchedulerConfig
	if req.Config != nil {
		cfg := req.Config.ToDomain()
		override = &cfg
	}

	batchID, err := h.manager.Submit(req.Name, req.ToSubmitItems(), override)
	if HandleSchedError(w, h.logger, err) {
		return
	}

	scheduler, err := h.manager.Get(batchID)
	if HandleSchedError(w, h.logger, err) {
		return
	}

	Created(w, BatchFromDomain(scheduler.Batch()))
}

// ListBatches возвращает все batch'и в реестре, новые первыми.
// GET /api/v1/batches
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches := h.manager.List()

	result := make([]BatchResponse, len(batches))
	for i, b := range batches {
		result[i] = BatchFromDomain(b)
	}

	List(w, result, len(result))
}

// GetBatch возвращает batch вместе с итогами по статусам.
// GET /api/v1/batches/{id}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid batch id")
		return
	}

	scheduler, err := h.manager.Get(batchID)
	if HandleSchedError(w, h.logger, err) {
		return
	}

	Success(w, BatchDetailResponse{
		BatchResponse: BatchFromDomain(scheduler.Batch()),
		Summary:       scheduler.Summary(),
	})
}

// ListBatchTasks возвращает point-in-time срез tasks batch'а
// в порядке submit.
// GET /api/v1/batches/{id}/tasks
func (h *Handler) ListBatchTasks(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid batch id")
		return
	}

	snapshot, err := h.manager.Snapshot(batchID)
	if HandleSchedError(w, h.logger, err) {
		return
	}

	List(w, snapshot, len(snapshot))
}

// CancelBatch запрашивает отмену batch'а. Ответ немедленный;
// завершение отмены наблюдается по snapshot'ам. Повторный вызов
// безопасен.
// POST /api/v1/batches/{id}/cancel
func (h *Handler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid batch id")
		return
	}

	if err := h.manager.Cancel(batchID); HandleSchedError(w, h.logger, err) {
		return
	}

	Accepted(w, map[string]any{"batch_id": batchID, "cancelling": true})
}

// DismissBatch удаляет урегулированный batch из реестра.
// Для неурегулированного — 422.
// DELETE /api/v1/batches/{id}
func (h *Handler) DismissBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid batch id")
		return
	}

	if err := h.manager.Dismiss(batchID); HandleSchedError(w, h.logger, err) {
		return
	}

	NoContent(w)
}
