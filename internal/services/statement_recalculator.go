package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cardcycle/internal/amqp"
	"cardcycle/internal/cache"
	"cardcycle/internal/core"
	applog "cardcycle/internal/log"
)

const (
	transferTypeCacheSize = 64
	transferTypeCacheTTL  = 10 * time.Minute
)

// StatementRecalculator keeps the last closed statement balance of a card
// correct when a transaction dated inside that cycle is created, edited or
// deleted. It implements TransactionObserver and never fails the caller.
type StatementRecalculator struct {
	store     StatementStore
	calc      *StatementCalculator
	publisher StatementPublisher
	loc       *time.Location
	typeNames *cache.LRUCache[string]
}

var _ TransactionObserver = (*StatementRecalculator)(nil)

func NewStatementRecalculator(store StatementStore, calc *StatementCalculator, publisher StatementPublisher, loc *time.Location) *StatementRecalculator {
	if loc == nil {
		loc = time.UTC
	}
	return &StatementRecalculator{
		store:     store,
		calc:      calc,
		publisher: publisher,
		loc:       loc,
		typeNames: cache.NewLRUCache[string](transferTypeCacheSize, transferTypeCacheTTL),
	}
}

// TypeNameCache exposes the transfer type cache so a cache.Manager can
// sweep expired entries.
func (r *StatementRecalculator) TypeNameCache() *cache.LRUCache[string] {
	return r.typeNames
}

// ExpenseChanged is the expense entry point. previousDate is set on update
// when the date moved.
func (r *StatementRecalculator) ExpenseChanged(ctx context.Context, accountID string, date time.Time, previousDate *time.Time) {
	r.TransactionChanged(ctx, entryChange(core.KindExpense, accountID, date, previousDate))
}

// IncomeChanged is the income entry point.
func (r *StatementRecalculator) IncomeChanged(ctx context.Context, accountID string, date time.Time, previousDate *time.Time) {
	r.TransactionChanged(ctx, entryChange(core.KindIncome, accountID, date, previousDate))
}

// TransferChanged is the transfer entry point.
func (r *StatementRecalculator) TransferChanged(ctx context.Context, fromAccountID, toAccountID, transferTypeID string, date time.Time, previousDate *time.Time) {
	cur := &core.TransactionRef{
		FromAccountID:  fromAccountID,
		ToAccountID:    toAccountID,
		TransferTypeID: transferTypeID,
		Date:           date,
	}
	change := core.TransactionChange{Kind: core.KindTransfer, Current: cur}
	if previousDate != nil {
		prev := *cur
		prev.Date = *previousDate
		change.Previous = &prev
	}
	r.TransactionChanged(ctx, change)
}

func entryChange(kind core.TransactionKind, accountID string, date time.Time, previousDate *time.Time) core.TransactionChange {
	change := core.TransactionChange{
		Kind:    kind,
		Current: &core.TransactionRef{AccountID: accountID, Date: date},
	}
	if previousDate != nil {
		change.Previous = &core.TransactionRef{AccountID: accountID, Date: *previousDate}
	}
	return change
}

// TransactionChanged recalculates every card whose last closed cycle
// contains the current or previous date of the change. Each card is
// recalculated at most once.
func (r *StatementRecalculator) TransactionChanged(ctx context.Context, change core.TransactionChange) {
	type target struct {
		cardID string
		dates  []time.Time
	}
	var targets []*target
	byCard := map[string]*target{}

	for _, ref := range []*core.TransactionRef{change.Current, change.Previous} {
		if ref == nil {
			continue
		}
		cardID, err := r.affectedAccount(ctx, change.Kind, ref)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to resolve affected card",
				"kind", change.Kind,
				"error", err)
			continue
		}
		if cardID == "" {
			continue
		}
		t, ok := byCard[cardID]
		if !ok {
			t = &target{cardID: cardID}
			byCard[cardID] = t
			targets = append(targets, t)
		}
		t.dates = append(t.dates, ref.Date)
	}

	for _, t := range targets {
		if err := r.recalculate(ctx, t.cardID, t.dates); err != nil {
			slog.ErrorContext(ctx, "Retroactive statement recalculation failed",
				applog.FieldCardID, t.cardID,
				"kind", change.Kind,
				applog.FieldError, err)
		}
	}
}

// affectedAccount returns the account whose statement the transaction can
// move: a card payment counts against the receiving card, any other
// transfer against the sending one.
func (r *StatementRecalculator) affectedAccount(ctx context.Context, kind core.TransactionKind, ref *core.TransactionRef) (string, error) {
	if kind != core.KindTransfer {
		return ref.AccountID, nil
	}
	name, err := r.transferTypeName(ctx, ref.TransferTypeID)
	if err != nil {
		return "", err
	}
	if name == core.CreditCardPaymentType {
		return ref.ToAccountID, nil
	}
	return ref.FromAccountID, nil
}

func (r *StatementRecalculator) transferTypeName(ctx context.Context, id string) (string, error) {
	if name, ok := r.typeNames.Get(id); ok {
		return name, nil
	}
	tt, err := r.store.GetTransferType(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get transfer type: %w", err)
	}
	r.typeNames.Set(id, tt.Name)
	return tt.Name, nil
}

func (r *StatementRecalculator) recalculate(ctx context.Context, cardID string, dates []time.Time) error {
	card, err := r.store.GetAccount(ctx, cardID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	w, ok := card.LastClosedCycle(r.loc)
	if !ok {
		return nil
	}

	inWindow := false
	for _, d := range dates {
		if w.Contains(d) {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return nil
	}

	_, err = r.apply(ctx, card, w)
	return err
}

// RecalculateLastCycle recomputes the last closed cycle of a card
// regardless of what changed. It returns core.ErrStatementNotConfigured
// unless the card is ACTIVE.
func (r *StatementRecalculator) RecalculateLastCycle(ctx context.Context, cardID string) (core.Money, error) {
	card, err := r.store.GetAccount(ctx, cardID)
	if err != nil {
		return core.Money{}, fmt.Errorf("get account: %w", err)
	}
	if !card.IsCreditCard() {
		return core.Money{}, core.ErrNotCreditCard
	}
	w, ok := card.LastClosedCycle(r.loc)
	if !ok {
		return core.Money{}, core.ErrStatementNotConfigured
	}
	return r.apply(ctx, card, w)
}

// apply stores the recomputed balance of w when it differs and announces
// the correction.
func (r *StatementRecalculator) apply(ctx context.Context, card core.Account, w core.CycleWindow) (core.Money, error) {
	balance, err := r.calc.Calculate(ctx, card.ID, w)
	if err != nil {
		return core.Money{}, err
	}
	if card.StatementBalance != nil && card.StatementBalance.Cents == balance.Cents {
		slog.DebugContext(ctx, "Statement balance unchanged after edit", applog.FieldCardID, card.ID)
		return balance, nil
	}
	if err := r.store.UpdateStatementBalance(ctx, card.ID, balance); err != nil {
		return core.Money{}, err
	}

	old := "none"
	if card.StatementBalance != nil {
		old = card.StatementBalance.String()
	}
	slog.InfoContext(ctx, "Statement balance corrected",
		applog.FieldCardID, card.ID,
		applog.FieldCycleStart, w.Start,
		applog.FieldCycleEnd, w.End,
		"old_balance", old,
		applog.FieldStatementBalance, balance.String())

	publishStatement(ctx, r.publisher, amqp.NewStatementMessage(
		amqp.EventStatementCorrected, card, w, balance, *card.LastStatementCalculationDate))
	return balance, nil
}
