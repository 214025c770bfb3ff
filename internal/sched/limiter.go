package sched

import (
	"context"
	"sync"
	"time"
)

// RateLimiter обеспечивает минимальный интервал между стартами tasks.
//
// Действует независимо от ConcurrencyGate: даже при свободных слотах
// серия стартов размазывается во времени, чтобы не провоцировать
// rate limiting на принимающей стороне. Интервал 0 отключает троттлинг.
//
// Потребитель один (цикл диспетчеризации batch'а), но lastStart
// защищён мьютексом: состояние читается и из снапшотов/тестов.
type RateLimiter struct {
	interval time.Duration

	mu        sync.Mutex
	lastStart time.Time
}

// NewRateLimiter создаёт limiter с минимальным интервалом между стартами.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Throttle блокируется, пока с последнего старта не пройдёт interval,
// затем фиксирует новый старт. Точка приостановки; возвращает
// ctx.Err() при отмене контекста.
func (l *RateLimiter) Throttle(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	wait := l.interval - time.Since(l.lastStart)
	if wait <= 0 {
		l.lastStart = time.Now()
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	l.lastStart = time.Now()
	l.mu.Unlock()
	return nil
}

// LastStart возвращает время последнего зафиксированного старта.
func (l *RateLimiter) LastStart() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastStart
}
