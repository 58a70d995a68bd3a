package main

import (
	"context"
	"time"
	_ "time/tzdata"

	"cardcycle/internal/cli"
	"cardcycle/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap("statement-worker")
	logger.Info("Starting statement-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	svc := cli.NewStatementServices(cfg, repo, publisher)
	scheduler := services.NewStatementScheduler(svc.Roller, services.SchedulerConfig{
		CheckInterval: cfg.StatementCheckInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Scheduler stop failed", "error", err)
		}
	})

	logger.Info("Statement roll-over configured",
		"interval", cfg.StatementCheckInterval,
		"timezone", cfg.StatementLocation().String(),
		"concurrency", cfg.StatementConcurrency,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start statement scheduler", "error", err)
		return
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Statement-worker shutdown complete")
}
