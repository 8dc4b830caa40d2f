package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/scheduler"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp, os.Stdout)

	res := cli.InitBackend(context.Background(), logger, cfg)

	srv := apphttp.NewServer(res.Service, apphttp.Options{
		Addr:               ":" + cfg.Port,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxImportBytes:     cfg.ImportMaxBytes,
		Logger:             logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	var sched *scheduler.Scheduler
	if cfg.RecurringEnabled {
		sched = scheduler.New(logger)
		if err := sched.AddJob(cfg.RecurringSchedule, scheduler.NewRecurringJob(res.Recurring, logger)); err != nil {
			logger.Error("Failed to schedule recurring expenses", log.FieldError, err)
			os.Exit(1)
		}
		sched.Start()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting expense server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil,
		"recurring_schedule", cfg.RecurringSchedule)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
