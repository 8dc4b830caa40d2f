package main

import (
	"context"
	"os"
	"time"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/scheduler"
)

// The worker materializes recurring expenses for deployments that run the
// API server with RECURRING_ENABLED=false. It only makes sense on a shared
// store, so DATA_BACKEND should be sqlite.
func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker, os.Stdout)
	logger.Info("Starting recurring-worker")

	if cfg.DataBackend != config.BackendSQLite {
		logger.Warn("recurring-worker is running on a non shared backend", "backend", cfg.DataBackend)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	job := scheduler.NewRecurringJob(res.Recurring, logger)
	sched := scheduler.New(logger)
	if err := sched.AddJob(cfg.RecurringSchedule, job); err != nil {
		logger.Error("Failed to schedule recurring expenses", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		sched.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	// Run initial processing on startup
	logger.Info("Running initial recurring expense processing")
	if err := sched.RunNow(job); err != nil {
		logger.Error("Initial processing failed", log.FieldError, err)
	}
	sched.Start()

	logger.Info("Recurring expense processor configured",
		"schedule", cfg.RecurringSchedule,
		"sqlite_db", cfg.SQLiteDBPath)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}
