// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий жизненного цикла батчей
//   - consumer.go   — потребление заявок на запуск батчей
//   - events.go     — адаптер sched.Listener → Publisher
//
// Типы сообщений:
//   - batch.submit       — заявка на запуск нового батча (входящая)
//   - task.state_changed — задача сменила статус (исходящее событие)
//   - batch.settled      — батч завершён (исходящее событие)
//
// Exchanges:
//   - uploads.batches — события уровня батча и заявки на запуск
//   - uploads.tasks   — события уровня задач
package mq
