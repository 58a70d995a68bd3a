// Package cli provides common initialization utilities shared by the
// binaries under cmd/.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardcycle/internal/amqp"
	"cardcycle/internal/config"
	applog "cardcycle/internal/log"
	"cardcycle/internal/services"
	"cardcycle/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger installs the text logger with request ID support as the
// default logger.
func SetupLogger(level slog.Level) *slog.Logger {
	logger := applog.NewTextLogger(os.Stdout, level)
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap runs the start-up sequence every binary shares: .env, config,
// then the logger at the configured level.
func Bootstrap(component string) (*config.Config, *slog.Logger) {
	LoadEnvFile()
	logger := SetupLogger(slog.LevelInfo)
	cfg := LoadAndValidateConfig(logger)
	logger = SetupLogger(cfg.SlogLevel()).With(applog.FieldComponent, component)
	return cfg, logger
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitPublisher connects the statement publisher when AMQP_URL is set. A
// broker that is down at start-up is not fatal: statements are still
// computed and stored, only the events are lost. The returned close
// function is always safe to call.
func InitPublisher(logger *slog.Logger, cfg *config.Config) (services.StatementPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - statement events will not be published")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without statement events", "error", err)
		return nil, func() {}
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
	}
}

// StatementServices is the wired statement engine.
type StatementServices struct {
	Calculator   *services.StatementCalculator
	Recalculator *services.StatementRecalculator
	Roller       *services.StatementRoller
	Transactions *services.TransactionService
}

// NewStatementServices wires calculator, roller and recalculator over the
// repository with the configured timezone and limits.
func NewStatementServices(cfg *config.Config, repo *storage.SQLiteRepository, pub services.StatementPublisher) StatementServices {
	loc := cfg.StatementLocation()
	calc := services.NewStatementCalculator(repo)
	recalc := services.NewStatementRecalculator(repo, calc, pub, loc)
	return StatementServices{
		Calculator:   calc,
		Recalculator: recalc,
		Roller: services.NewStatementRoller(repo, calc, pub, services.RollerConfig{
			Location:    loc,
			Concurrency: cfg.StatementConcurrency,
			CardTimeout: cfg.StatementCardTimeout,
			RunTimeout:  cfg.StatementRunTimeout,
		}),
		Transactions: services.NewTransactionService(repo, recalc),
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that is cancelled on SIGINT or SIGTERM after cleanup
// ran, and a channel closed once cleanup finished or timed out.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
