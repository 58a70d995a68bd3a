package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cardcycle/internal/amqp"
	"cardcycle/internal/core"
	applog "cardcycle/internal/log"
	"cardcycle/internal/sheets"
)

// ClosedCardLister returns cards that have a closed statement balance.
type ClosedCardLister interface {
	ListClosedCards(ctx context.Context) ([]core.Account, error)
}

// StatementSyncWorker exports statement events from AMQP to a spreadsheet.
type StatementSyncWorker struct {
	cards  ClosedCardLister
	writer sheets.StatementWriter
	lister sheets.StatementLister
	loc    *time.Location
}

// NewStatementSyncWorker builds the worker. lister may be nil, in which
// case StartupSyncCheck is skipped.
func NewStatementSyncWorker(cards ClosedCardLister, writer sheets.StatementWriter, lister sheets.StatementLister, loc *time.Location) *StatementSyncWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &StatementSyncWorker{
		cards:  cards,
		writer: writer,
		lister: lister,
		loc:    loc,
	}
}

// HandleStatementMessage appends one row per message. Unknown events are
// dropped so they are not redelivered forever.
func (w *StatementSyncWorker) HandleStatementMessage(ctx context.Context, msg *amqp.StatementMessage) error {
	slog.InfoContext(ctx, "Processing statement message",
		applog.FieldEvent, msg.Event,
		applog.FieldAccountID, msg.AccountID)

	switch msg.Event {
	case amqp.EventStatementClosed, amqp.EventStatementCorrected:
	default:
		slog.WarnContext(ctx, "Dropping statement message with unknown event",
			applog.FieldEvent, msg.Event,
			applog.FieldAccountID, msg.AccountID)
		return nil
	}
	if msg.AccountID == "" {
		slog.WarnContext(ctx, "Dropping statement message without account id")
		return nil
	}

	ref, err := w.writer.AppendStatement(ctx, w.rowFromMessage(msg))
	if err != nil {
		return fmt.Errorf("append statement to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported statement",
		applog.FieldAccountID, msg.AccountID,
		applog.FieldEvent, msg.Event,
		"sheets_ref", ref,
		applog.FieldStatementBalance, msg.StatementBalance.StringFixed(2))
	return nil
}

// StartupSyncCheck exports the latest closed statement of every card that
// is missing from the sheet. It recovers statements whose event was lost
// while the broker was unreachable.
func (w *StatementSyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.lister == nil {
		slog.WarnContext(ctx, "No statement lister configured, skipping startup sync check")
		return nil
	}

	cards, err := w.cards.ListClosedCards(ctx)
	if err != nil {
		return fmt.Errorf("list closed cards: %w", err)
	}
	if len(cards) == 0 {
		slog.InfoContext(ctx, "No closed statements found on startup")
		return nil
	}

	exported := map[int]map[string]bool{}
	successCount, errorCount := 0, 0

	for _, card := range cards {
		win, ok := card.LastClosedCycle(w.loc)
		if !ok || card.StatementBalance == nil {
			continue
		}
		closedAt := card.LastStatementCalculationDate.In(w.loc)

		seen, ok := exported[closedAt.Year()]
		if !ok {
			seen, err = w.exportedKeys(ctx, closedAt.Year())
			if err != nil {
				return err
			}
			exported[closedAt.Year()] = seen
		}
		key := rowKey(card.ID, closedAt)
		if seen[key] {
			continue
		}

		msg := amqp.NewStatementMessage(amqp.EventStatementClosed, card, win, *card.StatementBalance, closedAt)
		if _, err := w.writer.AppendStatement(ctx, w.rowFromMessage(msg)); err != nil {
			slog.ErrorContext(ctx, "Failed to export statement during startup",
				applog.FieldAccountID, card.ID,
				"error", err)
			errorCount++
			continue
		}
		seen[key] = true
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(cards),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

func (w *StatementSyncWorker) exportedKeys(ctx context.Context, year int) (map[string]bool, error) {
	rows, err := w.lister.ListStatements(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list exported statements for %d: %w", year, err)
	}
	keys := make(map[string]bool, len(rows))
	for _, r := range rows {
		keys[rowKey(r.AccountID, r.ClosedAt)] = true
	}
	return keys, nil
}

func rowKey(accountID string, closedAt time.Time) string {
	return accountID + "|" + closedAt.Format("2006-01-02")
}

// rowFromMessage renders dates in the operating timezone so a sheet row
// shows the calendar days the cycle was computed for.
func (w *StatementSyncWorker) rowFromMessage(msg *amqp.StatementMessage) sheets.StatementRow {
	return sheets.StatementRow{
		Event:       msg.Event,
		AccountID:   msg.AccountID,
		AccountName: msg.AccountName,
		CycleStart:  msg.CycleStart.In(w.loc),
		CycleEnd:    msg.CycleEnd.In(w.loc),
		Balance:     msg.StatementBalance,
		ClosedAt:    msg.ClosedAt.In(w.loc),
	}
}
