package sched

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// CancelRegistry — реестр abort-хэндлов выполняющихся tasks.
//
// Хэндл регистрируется по стабильному ID task'а при диспетчеризации
// попытки и снимается, когда попытка завершилась, — записи не текут
// и не зависят от позиции task'а в каких-либо списках. CancelAll
// доставляет abort-сигнал каждому выполняющемуся task'у; сама отмена
// кооперативная — executor наблюдает сигнал и останавливается сам.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewCancelRegistry создаёт пустой реестр.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[uuid.UUID]context.CancelFunc)}
}

// Add регистрирует abort-хэндл попытки task'а.
func (r *CancelRegistry) Add(taskID uuid.UUID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[taskID] = cancel
}

// Remove снимает хэндл завершившейся попытки.
func (r *CancelRegistry) Remove(taskID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, taskID)
}

// CancelAll доставляет abort-сигнал всем зарегистрированным попыткам.
func (r *CancelRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancels {
		cancel()
	}
}

// Len возвращает число активных хэндлов.
func (r *CancelRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}
