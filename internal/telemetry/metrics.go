package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// Метрики планировщика.
var (
	tasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batchd_tasks_in_flight",
		Help: "Number of tasks currently RUNNING across all batches",
	})

	tasksRetriedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchd_task_retries_total",
		Help: "Total number of task attempts re-enqueued for retry",
	})

	tasksSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchd_tasks_settled_total",
		Help: "Total number of tasks that reached a terminal status",
	}, []string{"status"})

	taskAttemptSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchd_task_attempt_duration_seconds",
		Help:    "Duration of a single task attempt, from RUNNING to its outcome",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~80s
	})

	batchesSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchd_batches_settled_total",
		Help: "Total number of batches with every task terminal",
	})
)

// MetricsListener — listener-адаптер планировщика, обновляющий
// Prometheus метрики на переходах tasks.
type MetricsListener struct {
	mu      sync.Mutex
	started map[uuid.UUID]time.Time
}

// NewMetricsListener создаёт MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{
		started: make(map[uuid.UUID]time.Time),
	}
}

// TaskStateChanged обновляет метрики по переходу статуса.
func (l *MetricsListener) TaskStateChanged(_, taskID uuid.UUID, old, new domain.TaskStatus) {
	if new == domain.TaskStatusRunning {
		tasksInFlight.Inc()
		l.markStarted(taskID)
	}
	if old == domain.TaskStatusRunning {
		tasksInFlight.Dec()
		l.observeAttempt(taskID)
		// RUNNING → PENDING бывает только при retry
		if new == domain.TaskStatusPending {
			tasksRetriedTotal.Inc()
		}
	}
	if new.IsTerminal() {
		tasksSettledTotal.WithLabelValues(string(new)).Inc()
	}
}

// BatchSettled учитывает урегулированный batch.
func (l *MetricsListener) BatchSettled(_ uuid.UUID, _ domain.BatchSummary) {
	batchesSettledTotal.Inc()
}

func (l *MetricsListener) markStarted(taskID uuid.UUID) {
	l.mu.Lock()
	l.started[taskID] = time.Now()
	l.mu.Unlock()
}

func (l *MetricsListener) observeAttempt(taskID uuid.UUID) {
	l.mu.Lock()
	startedAt, ok := l.started[taskID]
	if ok {
		delete(l.started, taskID)
	}
	l.mu.Unlock()

	if ok {
		taskAttemptSeconds.Observe(time.Since(startedAt).Seconds())
	}
}
