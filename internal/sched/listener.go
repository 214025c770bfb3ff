package sched

import (
	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// Listener получает уведомления о жизненном цикле batch'а.
//
// Методы вызываются синхронно из горутин планировщика после фиксации
// перехода; реализации обязаны быть потокобезопасными и быстрыми
// (тяжёлую работу — в свою горутину).
type Listener interface {
	// TaskStateChanged — task перешёл из old в new.
	TaskStateChanged(batchID, taskID uuid.UUID, old, new domain.TaskStatus)

	// BatchSettled — каждый task batch'а достиг терминального статуса.
	// Вызывается ровно один раз на batch.
	BatchSettled(batchID uuid.UUID, summary domain.BatchSummary)
}

// NopListener — заглушка Listener.
type NopListener struct{}

func (NopListener) TaskStateChanged(_, _ uuid.UUID, _, _ domain.TaskStatus) {}

func (NopListener) BatchSettled(_ uuid.UUID, _ domain.BatchSummary) {}

// MultiListener рассылает уведомления нескольким Listener'ам по порядку.
type MultiListener []Listener

func (m MultiListener) TaskStateChanged(batchID, taskID uuid.UUID, old, new domain.TaskStatus) {
	for _, l := range m {
		l.TaskStateChanged(batchID, taskID, old, new)
	}
}

func (m MultiListener) BatchSettled(batchID uuid.UUID, summary domain.BatchSummary) {
	for _, l := range m {
		l.BatchSettled(batchID, summary)
	}
}
