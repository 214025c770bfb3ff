// Package config загружает конфигурацию batchd из YAML файла
// с переопределением через переменные окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// Дефолты сервера.
const (
	DefaultListenAddr  = ":8080"
	DefaultHistoryKeep = 200
)

// Config — конфигурация сервиса batchd.
type Config struct {
	// Listen — адрес HTTP API.
	Listen string `yaml:"listen"`

	// DatabaseURL — DSN Postgres для архива истории. Пусто — история отключена.
	DatabaseURL string `yaml:"database_url"`

	// AMQPURL — адрес RabbitMQ. Пусто — события и приём заявок из очереди отключены.
	AMQPURL string `yaml:"amqp_url"`

	// Scheduler — дефолтные параметры планировщика для новых batch'ей.
	// Каждый submit может переопределить их целиком.
	Scheduler SchedulerDefaults `yaml:"scheduler"`

	// Recurring — периодически запускаемые batch'и.
	Recurring []RecurringBatch `yaml:"recurring"`
}

// SchedulerDefaults — YAML представление domain.SchedulerConfig.
// Интервалы задаются строками Go duration ("250ms", "1s").
type SchedulerDefaults struct {
	MaxConcurrency   int    `yaml:"max_concurrency"`
	MinStartInterval string `yaml:"min_start_interval"`
	MaxAttempts      int    `yaml:"max_attempts"`
	BackoffBase      string `yaml:"backoff_base"`
	BackoffCap       string `yaml:"backoff_cap"`
}

// RecurringBatch — шаблон batch'а, пересоздаваемого по cron расписанию.
type RecurringBatch struct {
	// Name — имя batch'а (и идентификатор записи в логах).
	Name string `yaml:"name"`

	// Schedule — cron выражение (5 полей) или дескриптор @every/@hourly.
	Schedule string `yaml:"schedule"`

	// Tasks — задачи, которые попадут в каждый запуск.
	Tasks []RecurringTask `yaml:"tasks"`
}

// RecurringTask — одна задача шаблона.
type RecurringTask struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"`
	Payload map[string]any `yaml:"payload"`
}

// Load читает конфигурацию из файла и применяет переопределения из окружения.
// Отсутствующий файл — не ошибка: остаются дефолты и окружение.
func Load(path string) (*Config, error) {
	cfg := &Config{Listen: DefaultListenAddr}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// работаем на дефолтах
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// applyEnv переопределяет поля из переменных окружения.
func (c *Config) applyEnv() {
	if v := os.Getenv("BATCHD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("DB_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.AMQPURL = v
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = DefaultListenAddr
	}

	if _, err := c.SchedulerConfig(); err != nil {
		return err
	}

	for i := range c.Recurring {
		r := &c.Recurring[i]
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			return fmt.Errorf("recurring[%d]: name is required", i)
		}
		if strings.TrimSpace(r.Schedule) == "" {
			return fmt.Errorf("recurring[%d]: schedule is required", i)
		}
		if len(r.Tasks) == 0 {
			return fmt.Errorf("recurring[%d]: at least one task is required", i)
		}
		for j, t := range r.Tasks {
			if strings.TrimSpace(t.Type) == "" {
				return fmt.Errorf("recurring[%d].tasks[%d]: type is required", i, j)
			}
		}
	}

	return nil
}

// SchedulerConfig преобразует YAML дефолты в domain.SchedulerConfig.
// Незаполненные поля получают дефолты в Normalized().
func (c *Config) SchedulerConfig() (domain.SchedulerConfig, error) {
	out := domain.SchedulerConfig{
		MaxConcurrency: c.Scheduler.MaxConcurrency,
		MaxAttempts:    c.Scheduler.MaxAttempts,
	}

	var err error
	if out.MinStartInterval, err = parseDuration("scheduler.min_start_interval", c.Scheduler.MinStartInterval, domain.DefaultMinStartInterval); err != nil {
		return out, err
	}
	if out.BackoffBase, err = parseDuration("scheduler.backoff_base", c.Scheduler.BackoffBase, 0); err != nil {
		return out, err
	}
	if out.BackoffCap, err = parseDuration("scheduler.backoff_cap", c.Scheduler.BackoffCap, 0); err != nil {
		return out, err
	}

	return out.Normalized(), nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
