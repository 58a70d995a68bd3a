package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cardcycle/internal/amqp"
	"cardcycle/internal/core"
	applog "cardcycle/internal/log"
	"cardcycle/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	paymentType  = "credit-card-payment"
	cashAdvance  = "cash-advance"
	internalType = "internal-transfer"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.StatementMessage
}

func (p *recordingPublisher) PublishStatement(_ context.Context, msg *amqp.StatementMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Event
	}
	return out
}

type testEnv struct {
	t      *testing.T
	loc    *time.Location
	repo   *storage.SQLiteRepository
	calc   *StatementCalculator
	recalc *StatementRecalculator
	txns   *TransactionService
	pub    *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	pub := &recordingPublisher{}
	calc := NewStatementCalculator(repo)
	recalc := NewStatementRecalculator(repo, calc, pub, loc)
	return &testEnv{
		t:      t,
		loc:    loc,
		repo:   repo,
		calc:   calc,
		recalc: recalc,
		txns:   NewTransactionService(repo, recalc),
		pub:    pub,
	}
}

func (e *testEnv) at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, e.loc)
}

func (e *testEnv) roller(now time.Time) *StatementRoller {
	return NewStatementRoller(e.repo, e.calc, e.pub, RollerConfig{
		Location:    e.loc,
		Concurrency: 4,
		CardTimeout: 5 * time.Second,
		RunTimeout:  30 * time.Second,
	}).WithClock(func() time.Time { return now })
}

func (e *testEnv) card(name string, statementDay int) core.Account {
	e.t.Helper()
	acc, err := e.repo.CreateAccount(context.Background(), core.Account{
		Name:          name,
		AccountType:   core.CreditCard,
		StatementDate: &statementDay,
	})
	require.NoError(e.t, err)
	return acc
}

func (e *testEnv) bank() core.Account {
	e.t.Helper()
	acc, err := e.repo.CreateAccount(context.Background(), core.Account{Name: "Bank", AccountType: core.Checking})
	require.NoError(e.t, err)
	return acc
}

// closeCycle puts the card in the ACTIVE state with the given balance and
// closing instant, bypassing the roller. The stored cycle is the regular one
// for the card's statement day.
func (e *testEnv) closeCycle(cardID string, balance int64, at time.Time) {
	e.t.Helper()
	acc := e.account(cardID)
	require.NotNil(e.t, acc.StatementDate)
	w := core.ClosedCycleWindow(*acc.StatementDate, at, e.loc)
	require.NoError(e.t, e.repo.CloseStatementCycle(context.Background(), cardID, core.Money{Cents: balance}, w.Start, at))
}

func (e *testEnv) account(id string) core.Account {
	e.t.Helper()
	acc, err := e.repo.GetAccount(context.Background(), id)
	require.NoError(e.t, err)
	return acc
}

func (e *testEnv) statementBalance(id string) int64 {
	e.t.Helper()
	acc := e.account(id)
	require.NotNil(e.t, acc.StatementBalance)
	return acc.StatementBalance.Cents
}

func (e *testEnv) expense(cardID string, at time.Time, cents int64) core.Expense {
	e.t.Helper()
	exp, err := e.txns.CreateExpense(context.Background(), core.Expense{AccountID: cardID, Date: at, Amount: core.Money{Cents: cents}})
	require.NoError(e.t, err)
	return exp
}

func (e *testEnv) transfer(from, to, typeID string, at time.Time, cents int64) core.Transfer {
	e.t.Helper()
	tr, err := e.txns.CreateTransfer(context.Background(), core.Transfer{
		FromAccountID:  from,
		ToAccountID:    to,
		TransferTypeID: typeID,
		Date:           at,
		Amount:         core.Money{Cents: cents},
	})
	require.NoError(e.t, err)
	return tr
}

func TestRoller_ConcreteScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 15)
	bank := env.bank()

	require.NoError(t, env.repo.SetStatementBaseline(ctx, card.ID, env.at(2024, 1, 15, 0, 5)))

	env.expense(card.ID, env.at(2024, 1, 15, 0, 0), 50000)
	env.expense(card.ID, env.at(2024, 2, 1, 13, 0), 40000)
	env.expense(card.ID, time.Date(2024, 2, 14, 23, 59, 59, 999000000, env.loc), 30000)
	env.transfer(bank.ID, card.ID, paymentType, env.at(2024, 1, 25, 9, 0), 20000)

	// outside the window or not counted
	env.expense(card.ID, env.at(2024, 2, 15, 0, 0), 99900)
	_, err := env.repo.CreateExpense(ctx, core.Expense{AccountID: card.ID, Date: env.at(2024, 1, 14, 23, 0), Amount: core.Money{Cents: 88800}})
	require.NoError(t, err)
	env.transfer(bank.ID, card.ID, internalType, env.at(2024, 1, 25, 9, 0), 20000)

	now := env.at(2024, 2, 15, 0, 10)
	results, err := env.roller(now).Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, RollSuccess, r.Status)
	require.NotNil(t, r.StatementBalance)
	assert.Equal(t, int64(100000), r.StatementBalance.Cents)

	acc := env.account(card.ID)
	assert.Equal(t, int64(100000), acc.StatementBalance.Cents)
	assert.True(t, acc.LastStatementCalculationDate.Equal(now))
	assert.Equal(t, []string{amqp.EventStatementClosed}, env.pub.events())

	w, ok := acc.LastClosedCycle(env.loc)
	require.True(t, ok)
	assert.True(t, w.Start.Equal(env.at(2024, 1, 15, 0, 0)))
	assert.True(t, w.End.Equal(time.Date(2024, 2, 14, 23, 59, 59, 999999999, env.loc)))
}

func TestRoller_RunTwiceSameMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 15)
	require.NoError(t, env.repo.SetStatementBaseline(ctx, card.ID, env.at(2024, 1, 15, 0, 5)))
	env.expense(card.ID, env.at(2024, 1, 20, 12, 0), 1234)

	first, err := env.roller(env.at(2024, 2, 15, 0, 10)).Run(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, RollSuccess, first[0].Status)
	before := env.account(card.ID)

	second, err := env.roller(env.at(2024, 2, 15, 18, 0)).Run(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, RollSkipped, second[0].Status)
	assert.Equal(t, ReasonAlreadyCalculated, second[0].Reason)

	after := env.account(card.ID)
	assert.Equal(t, before.StatementBalance.Cents, after.StatementBalance.Cents)
	assert.True(t, before.LastStatementCalculationDate.Equal(*after.LastStatementCalculationDate))
}

func TestRoller_FirstRunSetsBaselineOnly(t *testing.T) {
	env := newTestEnv(t)
	card := env.card("Visa", 15)
	env.expense(card.ID, env.at(2024, 2, 1, 12, 0), 5000)

	now := env.at(2024, 2, 15, 0, 10)
	results, err := env.roller(now).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, RollSkipped, results[0].Status)
	assert.Equal(t, ReasonTransitional, results[0].Reason)
	assert.Nil(t, results[0].StatementBalance)

	acc := env.account(card.ID)
	require.NotNil(t, acc.LastStatementCalculationDate)
	assert.True(t, acc.LastStatementCalculationDate.Equal(now))
	assert.Nil(t, acc.StatementBalance)
	assert.Equal(t, core.StatementActive, acc.StatementState())
	assert.Empty(t, env.pub.events())
}

func TestRoller_UsesOperatingTimezone(t *testing.T) {
	env := newTestEnv(t)
	card := env.card("Visa", 15)

	// 2024-02-14 17:00 UTC is already the 15th in Manila.
	now := time.Date(2024, 2, 14, 17, 0, 0, 0, time.UTC)
	results, err := env.roller(now).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, card.ID, results[0].CardID)

	// Same instant read in UTC is the 14th: nothing due.
	utcRoller := NewStatementRoller(env.repo, env.calc, nil, RollerConfig{Location: time.UTC}).
		WithClock(func() time.Time { return now })
	results, err = utcRoller.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRoller_ShortMonthClamping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 31)
	require.NoError(t, env.repo.SetStatementBaseline(ctx, card.ID, env.at(2024, 3, 31, 1, 0)))
	env.expense(card.ID, env.at(2024, 3, 31, 12, 0), 700)
	env.expense(card.ID, env.at(2024, 4, 29, 12, 0), 300)
	env.expense(card.ID, env.at(2024, 4, 30, 12, 0), 9999)

	results, err := env.roller(env.at(2024, 4, 30, 1, 0)).Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, RollSuccess, results[0].Status)
	assert.Equal(t, int64(1000), results[0].StatementBalance.Cents)
}

func TestRoller_MissedMonthBillsWholeGap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 15)
	require.NoError(t, env.repo.SetStatementBaseline(ctx, card.ID, env.at(2024, 1, 15, 0, 5)))
	env.expense(card.ID, env.at(2024, 1, 20, 12, 0), 1000)
	env.expense(card.ID, env.at(2024, 2, 20, 12, 0), 2000)
	env.expense(card.ID, env.at(2024, 3, 15, 9, 0), 4000)

	// No run on Feb 15; the next one closes everything since the baseline.
	results, err := env.roller(env.at(2024, 3, 15, 0, 10)).Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, RollSuccess, results[0].Status)
	require.NotNil(t, results[0].StatementBalance)
	assert.Equal(t, int64(3000), results[0].StatementBalance.Cents)

	acc := env.account(card.ID)
	w, ok := acc.LastClosedCycle(env.loc)
	require.True(t, ok)
	assert.True(t, w.Start.Equal(env.at(2024, 1, 15, 0, 0)))
	assert.True(t, w.End.Equal(time.Date(2024, 3, 14, 23, 59, 59, 999999999, env.loc)))

	// A late edit inside the gap is corrected against the same window.
	env.expense(card.ID, env.at(2024, 1, 25, 12, 0), 500)
	assert.Equal(t, int64(3500), env.statementBalance(card.ID))
}

func TestRoller_LogsClosedCycle(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(applog.NewTextLogger(&buf, slog.LevelInfo))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 15)
	require.NoError(t, env.repo.SetStatementBaseline(ctx, card.ID, env.at(2024, 1, 15, 0, 5)))
	env.expense(card.ID, env.at(2024, 2, 20, 12, 0), 2000)

	_, err := env.roller(env.at(2024, 3, 15, 0, 10)).Run(ctx)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, applog.FieldCardID+"="+card.ID)
	assert.Contains(t, out, applog.FieldCycleStart+"=2024-01-15T00:00:00")
	assert.Contains(t, out, applog.FieldCycleEnd+"=2024-03-14T23:59:59")
	assert.Contains(t, out, applog.FieldStatementBalance+"=20.00")
}

func TestRoller_ReconfiguredDayKeepsPreviousBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 15)
	require.NoError(t, env.repo.SetStatementBaseline(ctx, card.ID, env.at(2024, 2, 15, 0, 5)))
	env.expense(card.ID, env.at(2024, 2, 17, 12, 0), 1000)
	env.expense(card.ID, env.at(2024, 3, 19, 12, 0), 200)

	day := 20
	_, err := env.repo.ConfigureStatement(ctx, card.ID, &day, nil)
	require.NoError(t, err)

	results, err := env.roller(env.at(2024, 3, 20, 0, 10)).Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, RollSuccess, results[0].Status)
	require.NotNil(t, results[0].StatementBalance)
	assert.Equal(t, int64(1200), results[0].StatementBalance.Cents)

	w, ok := env.account(card.ID).LastClosedCycle(env.loc)
	require.True(t, ok)
	assert.True(t, w.Start.Equal(env.at(2024, 2, 15, 0, 0)))

	env.expense(card.ID, env.at(2024, 2, 16, 8, 0), 300)
	assert.Equal(t, int64(1500), env.statementBalance(card.ID))
}

type failingStore struct {
	StatementStore
	failCard string
	listErr  error
}

func (s failingStore) SumCardActivity(ctx context.Context, cardID string, w core.CycleWindow) (core.CardActivity, error) {
	if cardID == s.failCard {
		return core.CardActivity{}, errors.New("database is locked")
	}
	return s.StatementStore.SumCardActivity(ctx, cardID, w)
}

func (s failingStore) ListDueCards(ctx context.Context, today time.Time) ([]core.Account, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.StatementStore.ListDueCards(ctx, today)
}

func TestRoller_FailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.card("A", 15)
	b := env.card("B", 15)
	for _, c := range []core.Account{a, b} {
		require.NoError(t, env.repo.SetStatementBaseline(ctx, c.ID, env.at(2024, 1, 15, 1, 0)))
		env.expense(c.ID, env.at(2024, 1, 20, 1, 0), 100)
	}

	store := failingStore{StatementStore: env.repo, failCard: a.ID}
	roller := NewStatementRoller(store, NewStatementCalculator(store), nil, RollerConfig{Location: env.loc, Concurrency: 2}).
		WithClock(func() time.Time { return env.at(2024, 2, 15, 1, 0) })

	results, err := roller.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]RollResult{}
	for _, r := range results {
		byID[r.CardID] = r
	}
	assert.Equal(t, RollFailed, byID[a.ID].Status)
	assert.Contains(t, byID[a.ID].Reason, "database is locked")
	assert.Equal(t, RollSuccess, byID[b.ID].Status)

	assert.Nil(t, env.account(a.ID).StatementBalance)
	assert.Equal(t, int64(100), env.statementBalance(b.ID))

	summary := Summarize(results)
	assert.Equal(t, RollSummary{Total: 2, Succeeded: 1, Failed: 1}, summary)
}

func TestRoller_ListFailureIsTopLevel(t *testing.T) {
	env := newTestEnv(t)
	store := failingStore{StatementStore: env.repo, listErr: errors.New("no such table")}
	roller := NewStatementRoller(store, NewStatementCalculator(store), nil, RollerConfig{Location: env.loc})

	results, err := roller.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, results)
}

type cancelAfterListStore struct {
	StatementStore
	cancel context.CancelFunc
}

func (s cancelAfterListStore) ListDueCards(ctx context.Context, today time.Time) ([]core.Account, error) {
	cards, err := s.StatementStore.ListDueCards(ctx, today)
	s.cancel()
	return cards, err
}

func TestRoller_CancelledRunRecordsFailures(t *testing.T) {
	env := newTestEnv(t)
	a := env.card("A", 15)
	b := env.card("B", 15)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := cancelAfterListStore{StatementStore: env.repo, cancel: cancel}
	roller := NewStatementRoller(store, NewStatementCalculator(store), nil, RollerConfig{Location: env.loc}).
		WithClock(func() time.Time { return env.at(2024, 2, 15, 1, 0) })

	results, err := roller.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, RollFailed, r.Status)
		assert.Equal(t, context.Canceled.Error(), r.Reason)
	}

	assert.Nil(t, env.account(a.ID).LastStatementCalculationDate)
	assert.Nil(t, env.account(b.ID).LastStatementCalculationDate)
}

func TestCalculator_DeterministicAndRouting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 1)
	bank := env.bank()
	in := env.at(2024, 1, 10, 12, 0)

	env.expense(card.ID, in, 10000)
	env.transfer(bank.ID, card.ID, paymentType, in, 3000)
	env.transfer(bank.ID, card.ID, internalType, in, 3000)
	env.transfer(card.ID, bank.ID, cashAdvance, in, 500)
	_, err := env.txns.CreateIncome(ctx, core.Income{AccountID: card.ID, Date: in, Amount: core.Money{Cents: 200}})
	require.NoError(t, err)

	w := core.ClosedCycleWindow(1, env.at(2024, 2, 1, 0, 0), env.loc)
	first, err := env.calc.Calculate(ctx, card.ID, w)
	require.NoError(t, err)
	second, err := env.calc.Calculate(ctx, card.ID, w)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(10000-3000+500-200), first.Cents)

	act, err := env.calc.Activity(ctx, card.ID, w)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), act.Payments.Cents)
	assert.Equal(t, int64(500), act.CashAdvances.Cents)
}

func TestRecalculator_RetroactiveExpense(t *testing.T) {
	env := newTestEnv(t)
	card := env.card("Visa", 1)
	env.closeCycle(card.ID, 50000, env.at(2024, 2, 1, 0, 30))

	// Seed the closed cycle so the recalculated total starts from 500.
	_, err := env.repo.CreateExpense(context.Background(), core.Expense{
		AccountID: card.ID, Date: env.at(2024, 1, 3, 9, 0), Amount: core.Money{Cents: 50000},
	})
	require.NoError(t, err)

	env.expense(card.ID, env.at(2024, 2, 5, 12, 0), 10000)
	assert.Equal(t, int64(50000), env.statementBalance(card.ID), "open cycle activity is not reported")
	assert.Empty(t, env.pub.events())

	env.expense(card.ID, env.at(2024, 1, 15, 12, 0), 10000)
	assert.Equal(t, int64(60000), env.statementBalance(card.ID))
	assert.Equal(t, []string{amqp.EventStatementCorrected}, env.pub.events())

	acc := env.account(card.ID)
	assert.True(t, acc.LastStatementCalculationDate.Equal(env.at(2024, 2, 1, 0, 30)), "correction must not advance the cycle")
}

func TestRecalculator_DateMovedOutOfClosedCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 1)
	env.closeCycle(card.ID, 0, env.at(2024, 2, 1, 0, 30))

	exp := env.expense(card.ID, env.at(2024, 1, 20, 12, 0), 2500)
	assert.Equal(t, int64(2500), env.statementBalance(card.ID))

	exp.Date = env.at(2024, 2, 20, 12, 0)
	_, err := env.txns.UpdateExpense(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), env.statementBalance(card.ID))

	exp.Date = env.at(2024, 1, 31, 23, 59)
	_, err = env.txns.UpdateExpense(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), env.statementBalance(card.ID))

	require.NoError(t, env.txns.DeleteExpense(ctx, exp.ID))
	assert.Equal(t, int64(0), env.statementBalance(card.ID))
}

func TestRecalculator_AccountChangeRecalculatesBothCards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.card("A", 1)
	b := env.card("B", 1)
	env.closeCycle(a.ID, 0, env.at(2024, 2, 1, 0, 30))
	env.closeCycle(b.ID, 0, env.at(2024, 2, 1, 0, 30))

	exp := env.expense(a.ID, env.at(2024, 1, 20, 12, 0), 4200)
	assert.Equal(t, int64(4200), env.statementBalance(a.ID))

	exp.AccountID = b.ID
	_, err := env.txns.UpdateExpense(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), env.statementBalance(a.ID))
	assert.Equal(t, int64(4200), env.statementBalance(b.ID))
}

func TestRecalculator_TransferRouting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 1)
	bank := env.bank()
	env.closeCycle(card.ID, 0, env.at(2024, 2, 1, 0, 30))
	in := env.at(2024, 1, 10, 8, 0)

	env.expense(card.ID, in, 10000)
	require.Equal(t, int64(10000), env.statementBalance(card.ID))

	pay := env.transfer(bank.ID, card.ID, paymentType, in, 4000)
	assert.Equal(t, int64(6000), env.statementBalance(card.ID))

	env.transfer(bank.ID, card.ID, internalType, in, 4000)
	assert.Equal(t, int64(6000), env.statementBalance(card.ID), "non-payment transfer into a card does not count")

	env.transfer(card.ID, bank.ID, cashAdvance, in, 1500)
	assert.Equal(t, int64(7500), env.statementBalance(card.ID))

	require.NoError(t, env.txns.DeleteTransfer(ctx, pay.ID))
	assert.Equal(t, int64(11500), env.statementBalance(card.ID))
}

func TestRecalculator_Income(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 1)
	env.closeCycle(card.ID, 0, env.at(2024, 2, 1, 0, 30))

	env.expense(card.ID, env.at(2024, 1, 10, 8, 0), 10000)
	inc, err := env.txns.CreateIncome(ctx, core.Income{AccountID: card.ID, Date: env.at(2024, 1, 11, 8, 0), Amount: core.Money{Cents: 250}})
	require.NoError(t, err)
	assert.Equal(t, int64(9750), env.statementBalance(card.ID))

	require.NoError(t, env.txns.DeleteIncome(ctx, inc.ID))
	assert.Equal(t, int64(10000), env.statementBalance(card.ID))
}

func TestRecalculator_IgnoresNonActiveAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	transitional := env.card("T", 1)
	bank := env.bank()

	env.expense(transitional.ID, env.at(2024, 1, 10, 8, 0), 100)
	assert.Nil(t, env.account(transitional.ID).StatementBalance)

	_, err := env.txns.CreateExpense(ctx, core.Expense{AccountID: bank.ID, Date: env.at(2024, 1, 10, 8, 0), Amount: core.Money{Cents: 100}})
	require.NoError(t, err)
	assert.Nil(t, env.account(bank.ID).StatementBalance)
	assert.Empty(t, env.pub.events())
}

func TestRecalculator_EntryPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 1)
	bank := env.bank()
	env.closeCycle(card.ID, 0, env.at(2024, 2, 1, 0, 30))

	// Rows written without the observer, then reported through the
	// per-kind entry points.
	_, err := env.repo.CreateExpense(ctx, core.Expense{AccountID: card.ID, Date: env.at(2024, 1, 5, 0, 0), Amount: core.Money{Cents: 900}})
	require.NoError(t, err)
	env.recalc.ExpenseChanged(ctx, card.ID, env.at(2024, 1, 5, 0, 0), nil)
	assert.Equal(t, int64(900), env.statementBalance(card.ID))

	_, err = env.repo.CreateIncome(ctx, core.Income{AccountID: card.ID, Date: env.at(2024, 1, 6, 0, 0), Amount: core.Money{Cents: 100}})
	require.NoError(t, err)
	env.recalc.IncomeChanged(ctx, card.ID, env.at(2024, 1, 6, 0, 0), nil)
	assert.Equal(t, int64(800), env.statementBalance(card.ID))

	_, err = env.repo.CreateTransfer(ctx, core.Transfer{
		FromAccountID: bank.ID, ToAccountID: card.ID, TransferTypeID: paymentType,
		Date: env.at(2024, 1, 7, 0, 0), Amount: core.Money{Cents: 300},
	})
	require.NoError(t, err)
	prev := env.at(2024, 2, 7, 0, 0)
	env.recalc.TransferChanged(ctx, bank.ID, card.ID, paymentType, env.at(2024, 1, 7, 0, 0), &prev)
	assert.Equal(t, int64(500), env.statementBalance(card.ID))

	// unknown transfer type is logged, not surfaced
	env.recalc.TransferChanged(ctx, bank.ID, card.ID, "nope", env.at(2024, 1, 7, 0, 0), nil)
	assert.Equal(t, int64(500), env.statementBalance(card.ID))
	assert.Equal(t, 1, env.recalc.TypeNameCache().Size())
}

func TestRecalculator_RecalculateLastCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.card("Visa", 1)
	env.closeCycle(card.ID, 0, env.at(2024, 2, 1, 0, 30))

	_, err := env.repo.CreateExpense(ctx, core.Expense{AccountID: card.ID, Date: env.at(2024, 1, 5, 0, 0), Amount: core.Money{Cents: 900}})
	require.NoError(t, err)

	balance, err := env.recalc.RecalculateLastCycle(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance.Cents)
	assert.Equal(t, int64(900), env.statementBalance(card.ID))
	assert.Equal(t, []string{amqp.EventStatementCorrected}, env.pub.events())

	// unchanged balance publishes nothing
	_, err = env.recalc.RecalculateLastCycle(ctx, card.ID)
	require.NoError(t, err)
	assert.Len(t, env.pub.events(), 1)

	_, err = env.recalc.RecalculateLastCycle(ctx, env.card("New", 10).ID)
	assert.ErrorIs(t, err, core.ErrStatementNotConfigured)

	_, err = env.recalc.RecalculateLastCycle(ctx, env.bank().ID)
	assert.ErrorIs(t, err, core.ErrNotCreditCard)

	_, err = env.recalc.RecalculateLastCycle(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrAccountNotFound)
}

type countingObserver struct {
	changes []core.TransactionChange
}

func (o *countingObserver) TransactionChanged(_ context.Context, c core.TransactionChange) {
	o.changes = append(o.changes, c)
}

func TestTransactionService_NotifiesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	obs := &countingObserver{}
	svc := NewTransactionService(env.repo, obs)
	card := env.card("Visa", 1)

	exp, err := svc.CreateExpense(ctx, core.Expense{AccountID: card.ID, Date: env.at(2024, 1, 5, 0, 0), Amount: core.Money{Cents: 100}})
	require.NoError(t, err)

	moved := exp
	moved.Date = env.at(2024, 3, 1, 0, 0)
	_, err = svc.UpdateExpense(ctx, moved)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteExpense(ctx, exp.ID))

	// failed writes do not notify
	_, err = svc.CreateExpense(ctx, core.Expense{AccountID: "missing", Date: env.at(2024, 1, 5, 0, 0), Amount: core.Money{Cents: 100}})
	assert.ErrorIs(t, err, core.ErrAccountNotFound)

	require.Len(t, obs.changes, 3)
	assert.Nil(t, obs.changes[0].Previous)
	assert.NotNil(t, obs.changes[1].Previous)
	assert.True(t, obs.changes[1].Previous.Date.Equal(exp.Date))
	assert.True(t, obs.changes[1].Current.Date.Equal(moved.Date))
	assert.Nil(t, obs.changes[2].Current)
	assert.Equal(t, card.ID, obs.changes[2].Previous.AccountID)
}
