package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Batches
	mux.Handle("POST /api/v1/batches", chain(http.HandlerFunc(h.SubmitBatch)))
	mux.Handle("GET /api/v1/batches", chain(http.HandlerFunc(h.ListBatches)))
	mux.Handle("GET /api/v1/batches/{id}", chain(http.HandlerFunc(h.GetBatch)))
	mux.Handle("GET /api/v1/batches/{id}/tasks", chain(http.HandlerFunc(h.ListBatchTasks)))
	mux.Handle("POST /api/v1/batches/{id}/cancel", chain(http.HandlerFunc(h.CancelBatch)))
	mux.Handle("DELETE /api/v1/batches/{id}", chain(http.HandlerFunc(h.DismissBatch)))

	// History
	mux.Handle("GET /api/v1/history", chain(http.HandlerFunc(h.ListHistory)))
	mux.Handle("GET /api/v1/history/{id}", chain(http.HandlerFunc(h.GetHistory)))
}
