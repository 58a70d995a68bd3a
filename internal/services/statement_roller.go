package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cardcycle/internal/amqp"
	"cardcycle/internal/core"
	applog "cardcycle/internal/log"

	"golang.org/x/sync/errgroup"
)

type RollStatus string

const (
	RollSuccess RollStatus = "success"
	RollSkipped RollStatus = "skipped"
	RollFailed  RollStatus = "failed"
)

// RollResult is the outcome for one card of a roll-over run.
type RollResult struct {
	CardID           string      `json:"card_id"`
	CardName         string      `json:"card_name"`
	Status           RollStatus  `json:"status"`
	StatementBalance *core.Money `json:"statement_balance,omitempty"`
	Reason           string      `json:"reason,omitempty"`
}

type RollSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func Summarize(results []RollResult) RollSummary {
	s := RollSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case RollSuccess:
			s.Succeeded++
		case RollSkipped:
			s.Skipped++
		case RollFailed:
			s.Failed++
		}
	}
	return s
}

type RollerConfig struct {
	Location    *time.Location
	Concurrency int
	CardTimeout time.Duration
	RunTimeout  time.Duration
}

// StatementRoller closes the statement cycle of every card whose statement
// day is today. It is safe to run several times a day: a card closes at
// most once per calendar month.
type StatementRoller struct {
	store     StatementStore
	calc      *StatementCalculator
	publisher StatementPublisher
	cfg       RollerConfig
	now       func() time.Time
}

func NewStatementRoller(store StatementStore, calc *StatementCalculator, publisher StatementPublisher, cfg RollerConfig) *StatementRoller {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &StatementRoller{
		store:     store,
		calc:      calc,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock replaces the time source; used by tests and the CLI --at flag.
func (r *StatementRoller) WithClock(now func() time.Time) *StatementRoller {
	r.now = now
	return r
}

// Run processes all due cards. Per-card problems end up in the results;
// only a failure to list the due cards is returned as an error.
func (r *StatementRoller) Run(ctx context.Context) ([]RollResult, error) {
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	now := r.now()
	today := now.In(r.cfg.Location)

	cards, err := r.store.ListDueCards(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}

	slog.InfoContext(ctx, "Processing statement roll-over",
		"due_cards", len(cards),
		"processing_date", today.Format("2006-01-02"),
		"timezone", r.cfg.Location.String())

	results := make([]RollResult, len(cards))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for i, card := range cards {
		g.Go(func() error {
			results[i] = r.RollCard(ctx, card, now)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(results)
	slog.InfoContext(ctx, "Statement roll-over complete",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return results, nil
}

// RollCard applies the roll-over to a single card as of now.
func (r *StatementRoller) RollCard(ctx context.Context, card core.Account, now time.Time) RollResult {
	result := RollResult{CardID: card.ID, CardName: card.Name}
	fail := func(err error) RollResult {
		result.Status = RollFailed
		result.Reason = err.Error()
		slog.ErrorContext(ctx, "Statement roll-over failed",
			applog.FieldCardID, card.ID,
			applog.FieldError, err)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if r.cfg.CardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CardTimeout)
		defer cancel()
	}

	decision, err := DecideCycle(card, now, r.cfg.Location)
	if err != nil {
		return fail(err)
	}

	switch decision.Action {
	case ActionSkip:
		result.Status = RollSkipped
		result.Reason = decision.Reason
		return result

	case ActionBaseline:
		if err := r.store.SetStatementBaseline(ctx, card.ID, now); err != nil {
			return fail(err)
		}
		slog.InfoContext(ctx, "Statement baseline recorded",
			applog.FieldCardID, card.ID,
			"last_statement_calculation_date", now)
		result.Status = RollSkipped
		result.Reason = decision.Reason
		return result
	}

	// The cycle opens where the previous one closed, which covers missed
	// months and statement days changed since the last closing.
	w := core.CycleSince(*card.LastStatementCalculationDate, now, r.cfg.Location)
	balance, err := r.calc.Calculate(ctx, card.ID, w)
	if err != nil {
		return fail(err)
	}
	if err := r.store.CloseStatementCycle(ctx, card.ID, balance, w.Start, now); err != nil {
		return fail(err)
	}

	slog.InfoContext(ctx, "Statement cycle closed",
		applog.FieldCardID, card.ID,
		applog.FieldCycleStart, w.Start,
		applog.FieldCycleEnd, w.End,
		applog.FieldStatementBalance, balance.String())

	publishStatement(ctx, r.publisher, amqp.NewStatementMessage(amqp.EventStatementClosed, card, w, balance, now))

	result.Status = RollSuccess
	result.StatementBalance = &balance
	return result
}
