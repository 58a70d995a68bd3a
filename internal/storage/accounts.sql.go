package storage

import (
	"context"
	"database/sql"
)

const accountColumns = `id, user_id, name, account_type, balance_cents, statement_date, due_date,
	statement_balance_cents, last_statement_calculation_date, previous_statement_balance_cents,
	last_cycle_start, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (Account, error) {
	var i Account
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.AccountType,
		&i.BalanceCents,
		&i.StatementDate,
		&i.DueDate,
		&i.StatementBalanceCents,
		&i.LastStatementCalculationDate,
		&i.PreviousStatementBalanceCents,
		&i.LastCycleStart,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAccount = `INSERT INTO accounts (
	id, user_id, name, account_type, balance_cents, statement_date, due_date, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	ID            string
	UserID        string
	Name          string
	AccountType   string
	BalanceCents  int64
	StatementDate sql.NullInt64
	DueDate       sql.NullInt64
	CreatedAt     int64
	UpdatedAt     int64
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount,
		arg.ID,
		arg.UserID,
		arg.Name,
		arg.AccountType,
		arg.BalanceCents,
		arg.StatementDate,
		arg.DueDate,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanAccount(row)
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const listDueCreditCards = `SELECT ` + accountColumns + ` FROM accounts
WHERE account_type = 'CREDIT_CARD'
  AND statement_date IS NOT NULL
  AND (statement_date = ? OR statement_date > ?)
ORDER BY name, id`

type ListDueCreditCardsParams struct {
	StatementDate int64
	// OverflowAbove also matches cards whose statement day is past it; set
	// to the day on the last day of a month, otherwise to 31.
	OverflowAbove int64
}

func (q *Queries) ListDueCreditCards(ctx context.Context, arg ListDueCreditCardsParams) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listDueCreditCards, arg.StatementDate, arg.OverflowAbove)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listClosedCreditCards = `SELECT ` + accountColumns + ` FROM accounts
WHERE account_type = 'CREDIT_CARD'
  AND statement_date IS NOT NULL
  AND last_statement_calculation_date IS NOT NULL
  AND statement_balance_cents IS NOT NULL
ORDER BY name, id`

func (q *Queries) ListClosedCreditCards(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listClosedCreditCards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateAccountStatementConfig = `UPDATE accounts
SET statement_date = ?, due_date = ?, updated_at = ?
WHERE id = ?`

type UpdateAccountStatementConfigParams struct {
	StatementDate sql.NullInt64
	DueDate       sql.NullInt64
	UpdatedAt     int64
	ID            string
}

func (q *Queries) UpdateAccountStatementConfig(ctx context.Context, arg UpdateAccountStatementConfigParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateAccountStatementConfig,
		arg.StatementDate,
		arg.DueDate,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setStatementBaseline = `UPDATE accounts
SET last_statement_calculation_date = ?, updated_at = ?
WHERE id = ? AND last_statement_calculation_date IS NULL`

type SetStatementBaselineParams struct {
	LastStatementCalculationDate int64
	UpdatedAt                    int64
	ID                           string
}

func (q *Queries) SetStatementBaseline(ctx context.Context, arg SetStatementBaselineParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setStatementBaseline,
		arg.LastStatementCalculationDate,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const closeStatementCycle = `UPDATE accounts
SET previous_statement_balance_cents = COALESCE(statement_balance_cents, previous_statement_balance_cents),
    statement_balance_cents = ?,
    last_cycle_start = ?,
    last_statement_calculation_date = ?,
    updated_at = ?
WHERE id = ?`

type CloseStatementCycleParams struct {
	StatementBalanceCents        int64
	LastCycleStart               int64
	LastStatementCalculationDate int64
	UpdatedAt                    int64
	ID                           string
}

func (q *Queries) CloseStatementCycle(ctx context.Context, arg CloseStatementCycleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, closeStatementCycle,
		arg.StatementBalanceCents,
		arg.LastCycleStart,
		arg.LastStatementCalculationDate,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateStatementBalance = `UPDATE accounts
SET statement_balance_cents = ?, updated_at = ?
WHERE id = ? AND last_statement_calculation_date IS NOT NULL`

type UpdateStatementBalanceParams struct {
	StatementBalanceCents int64
	UpdatedAt             int64
	ID                    string
}

func (q *Queries) UpdateStatementBalance(ctx context.Context, arg UpdateStatementBalanceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateStatementBalance,
		arg.StatementBalanceCents,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const adjustAccountBalance = `UPDATE accounts
SET balance_cents = balance_cents + ?, updated_at = ?
WHERE id = ?`

type AdjustAccountBalanceParams struct {
	DeltaCents int64
	UpdatedAt  int64
	ID         string
}

func (q *Queries) AdjustAccountBalance(ctx context.Context, arg AdjustAccountBalanceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, adjustAccountBalance, arg.DeltaCents, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumCardActivity = `SELECT
  (SELECT COALESCE(SUM(e.amount_cents), 0) FROM expenses e
    WHERE e.account_id = ? AND e.date BETWEEN ? AND ?) AS expenses_cents,
  (SELECT COALESCE(SUM(t.amount_cents), 0) FROM transfers t
    JOIN transfer_types tt ON tt.id = t.transfer_type_id
    WHERE t.from_account_id = ? AND tt.name <> ? AND t.date BETWEEN ? AND ?) AS cash_advances_cents,
  (SELECT COALESCE(SUM(t.amount_cents), 0) FROM transfers t
    JOIN transfer_types tt ON tt.id = t.transfer_type_id
    WHERE t.to_account_id = ? AND tt.name = ? AND t.date BETWEEN ? AND ?) AS payments_cents,
  (SELECT COALESCE(SUM(i.amount_cents), 0) FROM incomes i
    WHERE i.account_id = ? AND i.date BETWEEN ? AND ?) AS credits_cents`

type SumCardActivityParams struct {
	AccountID       string
	Start           int64
	End             int64
	PaymentTypeName string
}

type SumCardActivityRow struct {
	ExpensesCents     int64
	CashAdvancesCents int64
	PaymentsCents     int64
	CreditsCents      int64
}

func (q *Queries) SumCardActivity(ctx context.Context, arg SumCardActivityParams) (SumCardActivityRow, error) {
	row := q.db.QueryRowContext(ctx, sumCardActivity,
		arg.AccountID, arg.Start, arg.End,
		arg.AccountID, arg.PaymentTypeName, arg.Start, arg.End,
		arg.AccountID, arg.PaymentTypeName, arg.Start, arg.End,
		arg.AccountID, arg.Start, arg.End,
	)
	var i SumCardActivityRow
	err := row.Scan(
		&i.ExpensesCents,
		&i.CashAdvancesCents,
		&i.PaymentsCents,
		&i.CreditsCents,
	)
	return i, err
}
