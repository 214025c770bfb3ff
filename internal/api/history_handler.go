package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ListHistory возвращает последние урегулированные batch'и из архива.
// GET /api/v1/history?limit=...
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		NotFound(w, "history is not configured")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.history.ListRecent(r.Context(), limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]BatchRecordResponse, len(records))
	for i, rec := range records {
		result[i] = BatchRecordFromDomain(rec)
	}

	List(w, result, len(result))
}

// GetHistory возвращает архивную запись batch'а вместе с tasks.
// GET /api/v1/history/{id}
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		NotFound(w, "history is not configured")
		return
	}

	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid batch id")
		return
	}

	record, err := h.history.GetByID(r.Context(), batchID)
	if HandleRepoError(w, h.logger, err, "batch not found in history") {
		return
	}

	Success(w, BatchRecordFromDomain(*record))
}
