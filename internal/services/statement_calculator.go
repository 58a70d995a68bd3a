package services

import (
	"context"
	"fmt"

	"cardcycle/internal/core"
)

// ActivityReader sums a card's transactions inside a cycle window.
type ActivityReader interface {
	SumCardActivity(ctx context.Context, cardID string, w core.CycleWindow) (core.CardActivity, error)
}

// StatementCalculator computes the statement balance of one card for one
// closed cycle. It has no side effects.
//
//	balance = expenses + cash advances - card payments - credits
//
// Each cycle stands alone; the previous statement balance is not carried in.
type StatementCalculator struct {
	store ActivityReader
}

func NewStatementCalculator(store ActivityReader) *StatementCalculator {
	return &StatementCalculator{store: store}
}

func (c *StatementCalculator) Calculate(ctx context.Context, cardID string, w core.CycleWindow) (core.Money, error) {
	act, err := c.Activity(ctx, cardID, w)
	if err != nil {
		return core.Money{}, err
	}
	return act.StatementBalance(), nil
}

// Activity returns the per-bucket totals behind Calculate.
func (c *StatementCalculator) Activity(ctx context.Context, cardID string, w core.CycleWindow) (core.CardActivity, error) {
	act, err := c.store.SumCardActivity(ctx, cardID, w)
	if err != nil {
		return core.CardActivity{}, fmt.Errorf("calculate statement balance: %w", err)
	}
	return act, nil
}
