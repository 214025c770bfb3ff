// Package cli реализует инструмент командной строки batchctl.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с batchd API.
// Работает через HTTP, не импортирует внутренние пакеты сервиса.
// Используется для отправки batch'ей, наблюдения за прогрессом,
// отмены и просмотра истории.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для batchd API. Инкапсулирует запросы, парсинг
// ответов (DataResponse, ListResponse, ErrorResponse) и обработку
// ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	batches, err := client.ListBatches()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (--json)
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: batchctl batch list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - batch: submit, list, show, tasks, cancel, dismiss, watch
//   - history: list, show
//
// Каждая группа создаётся через фабричную функцию (NewBatchCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
