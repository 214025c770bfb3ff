package executor

import (
	"context"
	"time"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// delaySteps — на сколько шагов дробится задержка ради прогресса.
const delaySteps = 10

// DelayExecutor — executor для task типа "delay".
//
// Ждёт указанное время, репортя прогресс по шагам. Используется как
// health-probe заглушка, в демонстрациях и тестах планировщика.
// Отмена через context наблюдается на каждом шаге.
//
// Config (из task.Payload):
//   - duration_ms (number): длительность в миллисекундах (default: 1000)
type DelayExecutor struct{}

// Execute выполняет задержку.
func (e *DelayExecutor) Execute(ctx context.Context, task *domain.Task, progress ProgressFunc) (*Result, error) {
	durationMs := 1000.0
	if val, ok := task.Payload["duration_ms"]; ok {
		switch v := val.(type) {
		case float64:
			durationMs = v
		case int:
			durationMs = float64(v)
		}
	}
	if durationMs <= 0 {
		durationMs = 1000
	}

	step := time.Duration(durationMs*float64(time.Millisecond)) / delaySteps

	for i := 1; i <= delaySteps; i++ {
		select {
		case <-time.After(step):
			if progress != nil {
				progress(i * 100 / delaySteps)
			}
		case <-ctx.Done():
			return nil, Aborted(ctx.Err())
		}
	}

	return &Result{
		Outputs: map[string]any{"delayed_ms": durationMs},
	}, nil
}
