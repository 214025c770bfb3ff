package executor

import (
	"context"
	"fmt"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// ProgressFunc — callback прогресса попытки, percent в диапазоне 0..100.
// Вызывается из горутины executor'а; получатель обязан быть потокобезопасным.
type ProgressFunc func(percent int)

// Executor — контракт выполнения одной попытки task.
//
// Контракт:
//   - ctx несёт abort-сигнал batch'а; executor обязан наблюдать его
//     и завершаться в ограниченное время после отмены
//   - progress вызывается с монотонно растущими значениями 0..100
//     (агрегатор дополнительно защищён от регресса)
//   - ошибки возвращаются значениями; классификация — через errors.go.
//     Паника executor'а — дефект реализации, а не канал ошибок
type Executor interface {
	Execute(ctx context.Context, task *domain.Task, progress ProgressFunc) (*Result, error)
}

// Result — результат успешной попытки.
type Result struct {
	// Outputs — выходные данные (код ответа, размер и т.п.).
	Outputs map[string]any
}

// Registry — реестр executor'ов по типу task.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry создаёт реестр со встроенными executor'ами: http, delay.
func NewRegistry() *Registry {
	r := &Registry{executors: make(map[string]Executor)}
	r.Register("http", NewHTTPExecutor())
	r.Register("delay", &DelayExecutor{})
	return r
}

// Register добавляет executor для типа task.
func (r *Registry) Register(taskType string, executor Executor) {
	r.executors[taskType] = executor
}

// Get возвращает executor для типа task.
func (r *Registry) Get(taskType string) (Executor, error) {
	executor, ok := r.executors[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
	return executor, nil
}

// Execute реализует Executor: диспетчеризует попытку по task.Type.
// Неизвестный тип — validation-ошибка: retry не поможет.
func (r *Registry) Execute(ctx context.Context, task *domain.Task, progress ProgressFunc) (*Result, error) {
	executor, err := r.Get(task.Type)
	if err != nil {
		return nil, Validation(err)
	}
	return executor.Execute(ctx, task, progress)
}
