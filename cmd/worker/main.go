package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agent-gateway/config"
	"agent-gateway/config/database"
	"agent-gateway/internal/loopguard"
	queueSQL "agent-gateway/internal/queue/sqlstore"
	taskSQL "agent-gateway/internal/task/repository/sqlstore"
	taskUC "agent-gateway/internal/task/usecase"
	"agent-gateway/internal/worker"
	"agent-gateway/pkg/log"
)

// main is the entry point for the background worker service.
// This binary leases tasks from the shared queue and drives them through
// the lifecycle via the task UseCase.
//
// Pattern:
//  1. Initialize infra (same as cmd/api/main.go)
//  2. Create UseCases
//  3. Create the worker pool, wire executor and poster
//  4. Run & graceful shutdown
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		return
	}

	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting worker service...")

	// The worker shares the queue table with the API process, so it needs a
	// durable store.
	if cfg.Database.Driver == "memory" {
		logger.Error(ctx, "Worker requires database.driver sqlite or postgres; the memory queue is process-local")
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database: ", err)
		return
	}
	defer database.Disconnect(db)

	tasks := taskSQL.New(db)
	q := queueSQL.New(db, logger, queueSQL.Config{
		LeaseTimeout:   cfg.Queue.LeaseTimeout,
		ReaperInterval: cfg.Queue.ReaperInterval,
		PollInterval:   cfg.Queue.PollInterval,
	})
	defer q.Close()
	guard := loopguard.NewSQLGuard(db, cfg.LoopGuard.TTL)

	for name, create := range map[string]func(context.Context) error{
		"tasks":      tasks.CreateSchema,
		"queue":      q.CreateSchema,
		"loop_guard": guard.CreateSchema,
	} {
		if schemaErr := create(ctx); schemaErr != nil {
			logger.Errorf(ctx, "Failed to create %s schema: %v", name, schemaErr)
			return
		}
	}

	tasksUC := taskUC.New(tasks, logger)

	pool := worker.NewPool(
		q,
		tasksUC,
		worker.NewStubExecutor(logger),
		worker.NewLogPoster(logger),
		guard,
		logger,
		worker.Config{
			PoolSize:       cfg.Worker.PoolSize,
			DequeueTimeout: cfg.Worker.DequeueTimeout,
		},
	)

	pool.Run(ctx)

	logger.Info(ctx, "Worker stopped gracefully")
}
