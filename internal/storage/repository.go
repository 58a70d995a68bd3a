package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardcycle/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN appends the connection pragmas every connection needs: a busy timeout
// so concurrent writers wait instead of failing, and foreign key checks.
func DSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := toMillis(r.now())

	row, err := r.queries.CreateAccount(ctx, CreateAccountParams{
		ID:            a.ID,
		UserID:        a.UserID,
		Name:          strings.TrimSpace(a.Name),
		AccountType:   string(a.AccountType),
		BalanceCents:  a.Balance.Cents,
		StatementDate: nullDay(a.StatementDate),
		DueDate:       nullDay(a.DueDate),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved to SQLite",
		"id", row.ID,
		"name", row.Name,
		"account_type", row.AccountType)

	return accountFromRow(row), nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return accountFromRow(row), nil
}

// ConfigureStatement sets or clears the statement and due days of a credit
// card. The cycle state (last calculation date, balances) is left as is.
func (r *SQLiteRepository) ConfigureStatement(ctx context.Context, id string, statementDate, dueDate *int) (core.Account, error) {
	if err := core.ValidateDayOfMonth(statementDate); err != nil {
		return core.Account{}, err
	}
	if err := core.ValidateDayOfMonth(dueDate); err != nil {
		return core.Account{}, err
	}

	acc, err := r.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if !acc.IsCreditCard() {
		return core.Account{}, core.ErrNotCreditCard
	}

	if _, err := r.queries.UpdateAccountStatementConfig(ctx, UpdateAccountStatementConfigParams{
		StatementDate: nullDay(statementDate),
		DueDate:       nullDay(dueDate),
		UpdatedAt:     toMillis(r.now()),
		ID:            id,
	}); err != nil {
		return core.Account{}, fmt.Errorf("update statement config: %w", err)
	}

	slog.InfoContext(ctx, "Statement configuration updated",
		"card_id", id,
		"statement_date", intOrNil(statementDate),
		"due_date", intOrNil(dueDate))

	return r.GetAccount(ctx, id)
}

// ListDueCards returns the credit cards whose cycle closes on today's
// calendar day. today must already be expressed in the operating location.
// On the last day of a month cards configured for a later day are included.
func (r *SQLiteRepository) ListDueCards(ctx context.Context, today time.Time) ([]core.Account, error) {
	overflow := int64(31)
	if today.Day() == core.DaysInMonth(today.Year(), today.Month()) {
		overflow = int64(today.Day())
	}

	rows, err := r.queries.ListDueCreditCards(ctx, ListDueCreditCardsParams{
		StatementDate: int64(today.Day()),
		OverflowAbove: overflow,
	})
	if err != nil {
		return nil, fmt.Errorf("list due credit cards: %w", err)
	}

	accounts := make([]core.Account, len(rows))
	for i, row := range rows {
		accounts[i] = accountFromRow(row)
	}
	return accounts, nil
}

// ListClosedCards returns credit cards that have at least one closed
// statement balance.
func (r *SQLiteRepository) ListClosedCards(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListClosedCreditCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list closed credit cards: %w", err)
	}
	accounts := make([]core.Account, len(rows))
	for i, row := range rows {
		accounts[i] = accountFromRow(row)
	}
	return accounts, nil
}

// SetStatementBaseline records the first calculation date of a card in the
// transitional state. It never overwrites an existing date.
func (r *SQLiteRepository) SetStatementBaseline(ctx context.Context, id string, at time.Time) error {
	if _, err := r.queries.SetStatementBaseline(ctx, SetStatementBaselineParams{
		LastStatementCalculationDate: toMillis(at),
		UpdatedAt:                    toMillis(r.now()),
		ID:                           id,
	}); err != nil {
		return fmt.Errorf("set statement baseline: %w", err)
	}
	return nil
}

// CloseStatementCycle stores the balance of a newly closed cycle that began
// at cycleStart. The old statement balance moves to
// previous_statement_balance in the same write.
func (r *SQLiteRepository) CloseStatementCycle(ctx context.Context, id string, balance core.Money, cycleStart, at time.Time) error {
	n, err := r.queries.CloseStatementCycle(ctx, CloseStatementCycleParams{
		StatementBalanceCents:        balance.Cents,
		LastCycleStart:               toMillis(cycleStart),
		LastStatementCalculationDate: toMillis(at),
		UpdatedAt:                    toMillis(r.now()),
		ID:                           id,
	})
	if err != nil {
		return fmt.Errorf("close statement cycle: %w", err)
	}
	if n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

// UpdateStatementBalance overwrites the balance of the last closed cycle
// and nothing else.
func (r *SQLiteRepository) UpdateStatementBalance(ctx context.Context, id string, balance core.Money) error {
	if _, err := r.queries.UpdateStatementBalance(ctx, UpdateStatementBalanceParams{
		StatementBalanceCents: balance.Cents,
		UpdatedAt:             toMillis(r.now()),
		ID:                    id,
	}); err != nil {
		return fmt.Errorf("update statement balance: %w", err)
	}
	return nil
}

// SumCardActivity totals a card's transactions inside the window, bucketed
// the way the statement balance needs them.
func (r *SQLiteRepository) SumCardActivity(ctx context.Context, cardID string, w core.CycleWindow) (core.CardActivity, error) {
	row, err := r.queries.SumCardActivity(ctx, SumCardActivityParams{
		AccountID:       cardID,
		Start:           toMillis(w.Start),
		End:             toMillis(w.End),
		PaymentTypeName: core.CreditCardPaymentType,
	})
	if err != nil {
		return core.CardActivity{}, fmt.Errorf("sum card activity: %w", err)
	}
	return core.CardActivity{
		Expenses:     core.Money{Cents: row.ExpensesCents},
		CashAdvances: core.Money{Cents: row.CashAdvancesCents},
		Payments:     core.Money{Cents: row.PaymentsCents},
		Credits:      core.Money{Cents: row.CreditsCents},
	}, nil
}

func (r *SQLiteRepository) ListTransferTypes(ctx context.Context) ([]core.TransferType, error) {
	rows, err := r.queries.ListTransferTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transfer types: %w", err)
	}
	types := make([]core.TransferType, len(rows))
	for i, row := range rows {
		types[i] = core.TransferType{ID: row.ID, Name: row.Name}
	}
	return types, nil
}

func (r *SQLiteRepository) GetTransferType(ctx context.Context, id string) (core.TransferType, error) {
	row, err := r.queries.GetTransferType(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransferType{}, core.ErrTransferTypeNotFound
	}
	if err != nil {
		return core.TransferType{}, fmt.Errorf("get transfer type: %w", err)
	}
	return core.TransferType{ID: row.ID, Name: row.Name}, nil
}

func accountFromRow(row Account) core.Account {
	a := core.Account{
		ID:                       row.ID,
		UserID:                   row.UserID,
		Name:                     row.Name,
		AccountType:              core.AccountType(row.AccountType),
		Balance:                  core.Money{Cents: row.BalanceCents},
		PreviousStatementBalance: core.Money{Cents: row.PreviousStatementBalanceCents},
		CreatedAt:                fromMillis(row.CreatedAt),
		UpdatedAt:                fromMillis(row.UpdatedAt),
	}
	if row.StatementDate.Valid {
		d := int(row.StatementDate.Int64)
		a.StatementDate = &d
	}
	if row.DueDate.Valid {
		d := int(row.DueDate.Int64)
		a.DueDate = &d
	}
	if row.StatementBalanceCents.Valid {
		a.StatementBalance = &core.Money{Cents: row.StatementBalanceCents.Int64}
	}
	if row.LastStatementCalculationDate.Valid {
		t := fromMillis(row.LastStatementCalculationDate.Int64)
		a.LastStatementCalculationDate = &t
	}
	if row.LastCycleStart.Valid {
		t := fromMillis(row.LastCycleStart.Int64)
		a.LastCycleStart = &t
	}
	return a
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullDay(day *int) sql.NullInt64 {
	if day == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*day), Valid: true}
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
