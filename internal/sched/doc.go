// Package sched реализует планировщик batch-выгрузок: ограниченная
// конкурентность, троттлинг стартов, retry с exponential backoff и
// кооперативная отмена.
//
// Состав:
//   - queue.go — FIFO-очередь готовых tasks (retry — в хвост)
//   - gate.go — семафор одновременно выполняющихся tasks
//   - limiter.go — минимальный интервал между стартами
//   - backoff.go — расчёт задержки между retry-попытками
//   - progress.go — авторитетное состояние tasks batch'а + уведомления
//   - cancel.go — реестр abort-хэндлов выполняющихся tasks
//   - scheduler.go — цикл диспетчеризации одного batch
//   - manager.go — реестр batch'ей, внешний интерфейс (submit/snapshot/cancel)
//
// Планировщик создаётся по одному на batch: общего глобального
// состояния нет, batch'и не мешают друг другу. Retry — это повторная
// вставка в хвост очереди, а не рекурсивный повторный вызов: глубина
// стека не растёт с числом попыток.
package sched
