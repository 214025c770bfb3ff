package domain

// TaskStatus — статус выполнения task.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED (после исчерпания retry или non-retryable ошибки)
//	                  ↘ PENDING (retryable ошибка — обратно в очередь, в хвост)
//	PENDING → CANCELLED (отмена до первого запуска)
//	RUNNING → CANCELLED (отмена во время выполнения)
type TaskStatus string

const (
	// TaskStatusPending — task в очереди, ожидает запуска.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusRunning — task выполняется executor'ом.
	TaskStatusRunning TaskStatus = "RUNNING"

	// TaskStatusCompleted — task успешно завершён.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusFailed — task завершился с ошибкой (терминально).
	TaskStatusFailed TaskStatus = "FAILED"

	// TaskStatusCancelled — task отменён (терминально).
	TaskStatusCancelled TaskStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
// Из терминального статуса переходов нет — task больше не мутируется.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// BatchStatus — статус batch целиком.
//
//	RUNNING → SETTLED (все tasks достигли терминального статуса)
type BatchStatus string

const (
	// BatchStatusRunning — batch обрабатывается планировщиком.
	BatchStatusRunning BatchStatus = "RUNNING"

	// BatchStatusSettled — каждый task batch'а терминален.
	BatchStatusSettled BatchStatus = "SETTLED"
)
