// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go         — Handler с DI (менеджер batch'ей, архив, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - batch_handler.go   — обработчики для /batches
//   - history_handler.go — обработчики для /history
//
// API предоставляет REST endpoints для управления batch'ами и просмотра
// архива урегулированных batch'ей.
package api
