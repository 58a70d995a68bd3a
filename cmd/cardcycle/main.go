package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"cardcycle/internal/cache"
	"cardcycle/internal/cli"
	apphttp "cardcycle/internal/http"
)

func main() {
	cfg, logger := cli.Bootstrap("cardcycle")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	svc := cli.NewStatementServices(cfg, repo, publisher)

	caches := cache.NewManager()
	caches.Register("transfer_types", svc.Recalculator.TypeNameCache())

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:     repo,
		Transactions: svc.Transactions,
		Activity:     svc.Calculator,
		Roller:       svc.Roller,
		Ready:        repo,
	}, apphttp.Options{
		Location:           cfg.StatementLocation(),
		CronSecret:         cfg.CronSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		stats := svc.Recalculator.TypeNameCache().Stats()
		logger.Info("Transfer type cache stats", "size", stats.Size, "hits", stats.Hits, "misses", stats.Misses)
	})
	caches.Start(ctx, 5*time.Minute)

	if cfg.CronSecret == "" {
		logger.Warn("CRON_SECRET not set - POST /api/cron/statements is disabled")
	}

	logger.Info("Starting cardcycle server",
		"port", cfg.Port,
		"timezone", cfg.StatementLocation().String(),
		"sqlite_db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
