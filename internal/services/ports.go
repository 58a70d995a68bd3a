package services

import (
	"context"
	"log/slog"
	"time"

	"cardcycle/internal/amqp"
	"cardcycle/internal/core"
	applog "cardcycle/internal/log"
)

// StatementStore is the slice of the repository the statement services use.
// *storage.SQLiteRepository satisfies it.
type StatementStore interface {
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ListDueCards(ctx context.Context, today time.Time) ([]core.Account, error)
	SetStatementBaseline(ctx context.Context, id string, at time.Time) error
	CloseStatementCycle(ctx context.Context, id string, balance core.Money, cycleStart, at time.Time) error
	UpdateStatementBalance(ctx context.Context, id string, balance core.Money) error
	SumCardActivity(ctx context.Context, cardID string, w core.CycleWindow) (core.CardActivity, error)
	GetTransferType(ctx context.Context, id string) (core.TransferType, error)
}

// StatementPublisher announces computed statement balances.
// *amqp.Client satisfies it.
type StatementPublisher interface {
	PublishStatement(ctx context.Context, msg *amqp.StatementMessage) error
}

// TransactionObserver is notified after every committed expense, income or
// transfer mutation. Implementations must not fail the mutation.
type TransactionObserver interface {
	TransactionChanged(ctx context.Context, change core.TransactionChange)
}

// publishStatement is best effort: broker failures are logged and the
// statement write stands. Callers leave p nil when AMQP is not configured.
func publishStatement(ctx context.Context, p StatementPublisher, msg *amqp.StatementMessage) {
	if p == nil {
		return
	}
	if err := p.PublishStatement(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish statement message",
			applog.FieldEvent, msg.Event,
			applog.FieldCardID, msg.AccountID,
			applog.FieldError, err)
	}
}
