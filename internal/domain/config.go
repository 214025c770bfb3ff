package domain

import "time"

// Значения по умолчанию для SchedulerConfig.
const (
	DefaultMaxConcurrency   = 3
	DefaultMinStartInterval = 250 * time.Millisecond
	DefaultMaxAttempts      = 3
	DefaultBackoffBase      = time.Second
	DefaultBackoffCap       = 30 * time.Second
)

// SchedulerConfig — параметры планировщика одного batch.
// Фиксируется при submit и не меняется на протяжении жизни batch.
type SchedulerConfig struct {
	// MaxConcurrency — верхняя граница одновременно выполняющихся tasks.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// MinStartInterval — минимальный интервал между стартами tasks.
	// Действует независимо от MaxConcurrency: даже при свободных
	// слотах старты размазываются во времени.
	MinStartInterval time.Duration `json:"min_start_interval" yaml:"min_start_interval"`

	// MaxAttempts — потолок попыток на task.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BackoffBase — базовая задержка exponential backoff.
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// BackoffCap — максимальная задержка между retry.
	BackoffCap time.Duration `json:"backoff_cap" yaml:"backoff_cap"`
}

// Normalized возвращает копию конфигурации с заполненными default'ами.
func (c SchedulerConfig) Normalized() SchedulerConfig {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MinStartInterval < 0 {
		c.MinStartInterval = 0
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	if c.BackoffCap < c.BackoffBase {
		c.BackoffCap = c.BackoffBase
	}
	return c
}
