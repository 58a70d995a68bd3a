package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"cardcycle/internal/amqp"
	"cardcycle/internal/backend"
	"cardcycle/internal/cli"
	"cardcycle/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("statement-sync")
	logger.Info("Starting statement-sync")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for statement-sync")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	exportCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid export configuration", "error", err)
		os.Exit(1)
	}
	export, err := backend.NewFactory(logger).Create(context.Background(), exportCfg)
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err, "backend", exportCfg.Type)
		os.Exit(1)
	}
	if export.Cleanup != nil {
		defer export.Cleanup()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewStatementSyncWorker(repo, export.Export, export.Export, cfg.StatementLocation())

	consumeDone := make(chan struct{})
	// The consumer stops when ctx is cancelled; nothing else to clean up.
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Export statements closed while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	go func() {
		defer close(consumeDone)
		if err := amqpClient.ConsumeStatements(ctx, syncWorker.HandleStatementMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)

	select {
	case <-consumeDone:
	case <-time.After(5 * time.Second):
		logger.Warn("Consumer did not stop in time")
	}
	logger.Info("Statement-sync shutdown complete")
}
