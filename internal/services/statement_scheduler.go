package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StatementRunner runs one roll-over pass. *StatementRoller satisfies it.
type StatementRunner interface {
	Run(ctx context.Context) ([]RollResult, error)
}

// SchedulerConfig holds configuration for the in-process scheduler
type SchedulerConfig struct {
	// CheckInterval is how often the roll-over runs (default: 1h). The
	// roll-over is idempotent within a month, so any interval under a day
	// works.
	CheckInterval time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{CheckInterval: time.Hour}
}

// StatementScheduler periodically runs the roll-over. It is the in-process
// alternative to calling the cron endpoint from outside.
type StatementScheduler struct {
	runner StatementRunner
	config SchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewStatementScheduler(runner StatementRunner, config SchedulerConfig) *StatementScheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultSchedulerConfig().CheckInterval
	}
	return &StatementScheduler{
		runner: runner,
		config: config,
	}
}

// Start begins the loop. Returns an error if already running.
func (s *StatementScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("statement scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Statement scheduler started", "check_interval", s.config.CheckInterval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (s *StatementScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		slog.InfoContext(ctx, "Statement scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Statement scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *StatementScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *StatementScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runOnce(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *StatementScheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "Statement roll-over run failed", "error", err)
	}
}
