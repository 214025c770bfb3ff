package sched

import "context"

// ConcurrencyGate ограничивает число одновременно выполняющихся tasks.
//
// Семафор на буферизованном канале: Admit занимает слот (блокируясь,
// пока все заняты), Release освобождает. Инвариант: в любой момент
// занято не больше max слотов — значит и RUNNING tasks не больше max.
type ConcurrencyGate struct {
	slots chan struct{}
}

// NewConcurrencyGate создаёт гейт на max слотов (минимум 1).
func NewConcurrencyGate(max int) *ConcurrencyGate {
	if max < 1 {
		max = 1
	}
	return &ConcurrencyGate{slots: make(chan struct{}, max)}
}

// Admit занимает слот. Точка приостановки: блокируется, пока
// in_flight == max. Возвращает ctx.Err() при отмене контекста.
func (g *ConcurrencyGate) Admit(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release освобождает слот и будит одного ожидающего Admit.
// Вызывается строго один раз на успешный Admit.
func (g *ConcurrencyGate) Release() {
	<-g.slots
}

// InFlight возвращает число занятых слотов.
func (g *ConcurrencyGate) InFlight() int {
	return len(g.slots)
}

// Capacity возвращает max слотов.
func (g *ConcurrencyGate) Capacity() int {
	return cap(g.slots)
}
