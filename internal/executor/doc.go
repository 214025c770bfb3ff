// Package executor определяет контракт TaskExecutor и встроенные реализации.
//
// Executor выполняет одну попытку одного task: получает payload,
// context для кооперативной отмены и callback прогресса. Ошибки
// возвращаются значениями с классификацией (transient / validation /
// aborted / unknown) — планировщик по классу решает retry или терминал.
//
// Встроенные executor'ы:
//   - http_executor.go — выгрузка payload на HTTP endpoint (bulk upload)
//   - delay_executor.go — отменяемая задержка с пошаговым прогрессом
//
// Регистрация по типу task — через Registry.
package executor
