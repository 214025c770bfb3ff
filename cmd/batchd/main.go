// batchd — сервис batch-планировщика задач.
//
// batchd:
//   - Принимает batch'и задач через HTTP API и RabbitMQ
//   - Выполняет их с ограничением конкурентности и троттлингом стартов
//   - Делает retry с exponential backoff; поддерживает отмену
//   - Публикует события жизненного цикла в RabbitMQ
//   - Архивирует итоги урегулированных batch'ей в Postgres
//
// Postgres и RabbitMQ опциональны: без них сервис работает
// в in-memory режиме только с HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cain76/finderskeepers-v2-sub001/internal/api"
	"github.com/cain76/finderskeepers-v2-sub001/internal/config"
	"github.com/cain76/finderskeepers-v2-sub001/internal/executor"
	"github.com/cain76/finderskeepers-v2-sub001/internal/mq"
	"github.com/cain76/finderskeepers-v2-sub001/internal/recurring"
	"github.com/cain76/finderskeepers-v2-sub001/internal/repo"
	"github.com/cain76/finderskeepers-v2-sub001/internal/sched"
	"github.com/cain76/finderskeepers-v2-sub001/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("batchd")
	logger.Info("starting batchd")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Конфигурация
	configPath := os.Getenv("BATCHD_CONFIG")
	if configPath == "" {
		configPath = "batchd.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	defaults, err := cfg.SchedulerConfig()
	if err != nil {
		logger.Error("invalid scheduler config", "error", err)
		os.Exit(1)
	}

	// Исполнители задач
	registry := executor.NewRegistry()
	registry.Register("http", executor.NewHTTPExecutor())
	registry.Register("delay", &executor.DelayExecutor{})

	// Слушатели уведомлений планировщика
	listeners := sched.MultiListener{telemetry.NewMetricsListener()}

	// Postgres: архив истории (опционально)
	var history *repo.HistoryRepo
	if cfg.DatabaseURL != "" {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}

		history = repo.NewHistoryRepo(pool)
		logger.Info("database connected, history enabled")
	} else {
		logger.Info("database not configured, history disabled")
	}

	// RabbitMQ: события и приём заявок (опционально, с деградацией)
	var mqConn *mq.Connection
	if cfg.AMQPURL != "" {
		mqConn, err = mq.Dial(cfg.AMQPURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running without queue integration", "error", err)
			mqConn = nil
		} else {
			defer mqConn.Close()

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}

			publisher := mq.NewPublisher(mqConn, logger)
			listeners = append(listeners, mq.NewEventListener(publisher, logger))
		}
	}

	// Менеджер batch'ей
	managerCfg := sched.ManagerConfig{
		Executor: registry,
		Listener: listeners,
		Defaults: defaults,
		Logger:   logger,
	}
	if history != nil {
		managerCfg.Archiver = history
	}
	manager := sched.NewManager(managerCfg)
	defer manager.Close()

	// Потребитель заявок из очереди
	if mqConn != nil {
		consumer := mq.NewSubmitConsumer(mqConn, manager, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("submit consumer stopped", "error", err)
			}
		}()
	}

	// Периодические batch'и
	if len(cfg.Recurring) > 0 {
		runner, err := recurring.New(cfg.Recurring, manager, logger)
		if err != nil {
			logger.Error("failed to setup recurring batches", "error", err)
			os.Exit(1)
		}
		runner.Start()
		defer runner.Stop()
		logger.Info("recurring batches scheduled", "count", len(cfg.Recurring))
	}

	// API handler
	handler := api.NewHandler(api.Config{
		Manager: manager,
		History: historyOrNil(history),
		Logger:  logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("batchd stopped")
}

// historyOrNil избегает typed-nil интерфейса в api.Config.
func historyOrNil(history *repo.HistoryRepo) api.History {
	if history == nil {
		return nil
	}
	return history
}
