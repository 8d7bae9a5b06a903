// Dirigent Daemon — долгоживущий процесс оркестрации.
//
// Daemon:
//   - Запускает группы по cron-расписаниям (SCHEDULES_FILE)
//   - Принимает запросы запусков из RabbitMQ (run.requested)
//   - Публикует события выполнения (run.completed, node.finished)
//   - Отдаёт /healthz и /metrics
//
// Лидерство планировщика держится advisory-блокировкой Postgres:
// при нескольких экземплярах daemon'а тикает только один.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Dirigent/internal/config"
	"github.com/shaiso/Dirigent/internal/mq"
	"github.com/shaiso/Dirigent/internal/orchestrator"
	"github.com/shaiso/Dirigent/internal/repo"
	"github.com/shaiso/Dirigent/internal/runner"
	"github.com/shaiso/Dirigent/internal/scheduler"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting dirigent-daemon")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Репозитории
	configRepo := repo.NewConfigRepo(pool)
	logRepo := repo.NewLogRepo(pool)
	runRepo := repo.NewRunRepo(pool)

	// RabbitMQ: необязательная зависимость. Без брокера daemon
	// работает в режиме только-расписания.
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in schedule-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Журнал выполнения: durable-журнал в Postgres, события в брокер
	// вторым потоком.
	var execLog orchestrator.ExecutionLog = logRepo
	if publisher != nil {
		execLog = orchestrator.TeeLog(logger, logRepo, mq.NewEventLog(publisher))
	}

	svc := &orchestrator.Service{
		Store:  configRepo,
		Log:    execLog,
		Runner: runner.NewRegistry(),
		Runs:   runRepo,
		Logger: logger,
	}

	// Consumer запросов запусков
	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueRunsRequested),
			Handler:  runRequestedHandler(svc, publisher, logger),
			Prefetch: 1,
		})
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	// Планировщик: расписания из YAML, лидерство через Postgres.
	if path := os.Getenv("SCHEDULES_FILE"); path != "" {
		schedules, err := config.LoadSchedules(path)
		if err != nil {
			logger.Error("failed to load schedules", "file", path, "error", err)
			os.Exit(1)
		}
		planner, err := scheduler.NewPlanner(schedules, time.Now())
		if err != nil {
			logger.Error("failed to plan schedules", "error", err)
			os.Exit(1)
		}
		logger.Info("schedules loaded", "file", path, "count", planner.Len())

		go scheduleLoop(ctx, pool, planner, svc, publisher, logger)
	} else {
		logger.Info("SCHEDULES_FILE not set, scheduler disabled")
	}

	// HTTP mux: /healthz + /metrics
	startTime := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8082"
	if v := os.Getenv("DAEMON_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("dirigent-daemon stopped")
}

// scheduleLoop — тикер планировщика. Каждую секунду лидер опрашивает
// созревшие расписания и запускает их группы.
func scheduleLoop(
	ctx context.Context,
	pool *pgxpool.Pool,
	planner *scheduler.Planner,
	svc *orchestrator.Service,
	publisher *mq.Publisher,
	logger *slog.Logger,
) {
	tk := time.NewTicker(1 * time.Second)
	defer tk.Stop()

	var leaderConn *pgxpool.Conn
	defer func() {
		if leaderConn != nil {
			leaderConn.Release()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-tk.C:
			if leaderConn == nil {
				conn, ok, err := repo.TryLeaderLock(ctx, pool)
				if err != nil {
					logger.Warn("leader lock attempt failed", "error", err)
					continue
				}
				if !ok {
					// Лидер — другой экземпляр; ждём следующего тика.
					continue
				}
				leaderConn = conn
				logger.Info("acquired scheduler leadership")
			}

			for _, sched := range planner.Due(now) {
				telemetry.ScheduledRunsTotal.WithLabelValues(sched.Group).Inc()
				go runGroup(ctx, svc, publisher, logger, sched.Group, orchestrator.RunOptions{
					MaxParallelism: sched.MaxParallelism,
					Source:         "schedule",
				})
			}
		}
	}
}

// runRequestedHandler обрабатывает запросы запусков из очереди.
func runRequestedHandler(svc *orchestrator.Service, publisher *mq.Publisher, logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg *mq.Delivery) error {
		var payload mq.RunRequestedPayload
		if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal run request: %w", err)
		}
		if payload.ProcessGroup == "" {
			return fmt.Errorf("run request without process group")
		}

		runGroup(ctx, svc, publisher, logger, payload.ProcessGroup, orchestrator.RunOptions{
			MaxParallelism: payload.MaxParallelism,
			Source:         "mq",
		})
		return nil
	}
}

// runGroup выполняет граф группы и публикует событие завершения.
func runGroup(
	ctx context.Context,
	svc *orchestrator.Service,
	publisher *mq.Publisher,
	logger *slog.Logger,
	group string,
	opts orchestrator.RunOptions,
) {
	logger.Info("starting run", "group", group, "source", opts.Source)

	result, err := svc.RunGroup(ctx, group, opts)
	if err != nil {
		logger.Error("run failed", "group", group, "error", err)
	}
	if result == nil {
		return
	}

	counts := result.Counts()
	logger.Info("run finished",
		"run_id", result.RunID,
		"group", group,
		"status", result.Status,
		"success", counts.Success,
		"failed", counts.Failed,
		"skipped", counts.Skipped,
	)

	if publisher == nil {
		return
	}
	pubErr := publisher.PublishRunCompleted(context.WithoutCancel(ctx), mq.RunCompletedPayload{
		RunID:        result.RunID,
		ProcessGroup: result.ProcessGroup,
		Status:       string(result.Status),
		Success:      counts.Success,
		Failed:       counts.Failed,
		Skipped:      counts.Skipped,
	})
	if pubErr != nil {
		logger.Warn("failed to publish run.completed", "run_id", result.RunID, "error", pubErr)
	}
}
