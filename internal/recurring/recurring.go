// Package recurring перезапускает batch'и по cron расписанию.
//
// Каждая запись recurring из конфигурации превращается в cron job,
// который на каждое срабатывание отправляет планировщику новый batch
// из шаблона задач. Прошлые запуски не отслеживаются: batch'и
// независимы, их итоги попадают в историю обычным путём.
package recurring

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/cain76/finderskeepers-v2-sub001/internal/config"
	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
	"github.com/cain76/finderskeepers-v2-sub001/internal/sched"
)

// cronParser принимает стандартные 5-полевые выражения и дескрипторы
// (@hourly, @every 10m).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Submitter принимает новые batch'и. Реализуется sched.Manager.
type Submitter interface {
	Submit(name string, items []sched.SubmitItem, cfg *domain.SchedulerConfig) (uuid.UUID, error)
}

// Runner управляет cron job'ами для периодических batch'ей.
type Runner struct {
	cron      *cron.Cron
	submitter Submitter
	logger    *slog.Logger
}

// New создаёт Runner и регистрирует записи из конфигурации.
// Невалидное расписание — ошибка конфигурации, сервис не стартует.
func New(entries []config.RecurringBatch, submitter Submitter, logger *slog.Logger) (*Runner, error) {
	r := &Runner{
		cron:      cron.New(cron.WithParser(cronParser)),
		submitter: submitter,
		logger:    logger,
	}

	for _, entry := range entries {
		if err := r.register(entry); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// register добавляет один cron job.
func (r *Runner) register(entry config.RecurringBatch) error {
	items := make([]sched.SubmitItem, 0, len(entry.Tasks))
	for _, t := range entry.Tasks {
		items = append(items, sched.SubmitItem{
			Name:    t.Name,
			Type:    t.Type,
			Payload: t.Payload,
		})
	}

	_, err := r.cron.AddFunc(entry.Schedule, func() {
		batchID, err := r.submitter.Submit(entry.Name, items, nil)
		if err != nil {
			r.logger.Error("failed to submit recurring batch",
				"name", entry.Name,
				"error", err,
			)
			return
		}

		r.logger.Info("recurring batch submitted",
			"name", entry.Name,
			"batch_id", batchID,
			"tasks", len(items),
		)
	})
	if err != nil {
		return fmt.Errorf("recurring %q: invalid schedule %q: %w", entry.Name, entry.Schedule, err)
	}

	return nil
}

// Start запускает cron в фоне.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop останавливает cron и ждёт завершения выполняющихся job'ов.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

// ValidateSchedule проверяет cron выражение без регистрации.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
