package storage

import (
	"context"
)

const listTransferTypes = `SELECT id, name FROM transfer_types ORDER BY name`

func (q *Queries) ListTransferTypes(ctx context.Context) ([]TransferType, error) {
	rows, err := q.db.QueryContext(ctx, listTransferTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransferType
	for rows.Next() {
		var i TransferType
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
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

const getTransferType = `SELECT id, name FROM transfer_types WHERE id = ?`

func (q *Queries) GetTransferType(ctx context.Context, id string) (TransferType, error) {
	row := q.db.QueryRowContext(ctx, getTransferType, id)
	var i TransferType
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const createExpense = `INSERT INTO expenses (
	id, account_id, date, amount_cents, description, category, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, account_id, date, amount_cents, description, category, created_at, updated_at`

type CreateExpenseParams struct {
	ID          string
	AccountID   string
	Date        int64
	AmountCents int64
	Description string
	Category    string
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ID,
		arg.AccountID,
		arg.Date,
		arg.AmountCents,
		arg.Description,
		arg.Category,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Date,
		&i.AmountCents,
		&i.Description,
		&i.Category,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getExpense = `SELECT id, account_id, date, amount_cents, description, category, created_at, updated_at
FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Date,
		&i.AmountCents,
		&i.Description,
		&i.Category,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateExpense = `UPDATE expenses
SET account_id = ?, date = ?, amount_cents = ?, description = ?, category = ?, updated_at = ?
WHERE id = ?`

type UpdateExpenseParams struct {
	AccountID   string
	Date        int64
	AmountCents int64
	Description string
	Category    string
	UpdatedAt   int64
	ID          string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense,
		arg.AccountID,
		arg.Date,
		arg.AmountCents,
		arg.Description,
		arg.Category,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createIncome = `INSERT INTO incomes (
	id, account_id, date, amount_cents, description, category, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, account_id, date, amount_cents, description, category, created_at, updated_at`

type CreateIncomeParams struct {
	ID          string
	AccountID   string
	Date        int64
	AmountCents int64
	Description string
	Category    string
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateIncome(ctx context.Context, arg CreateIncomeParams) (Income, error) {
	row := q.db.QueryRowContext(ctx, createIncome,
		arg.ID,
		arg.AccountID,
		arg.Date,
		arg.AmountCents,
		arg.Description,
		arg.Category,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Income
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Date,
		&i.AmountCents,
		&i.Description,
		&i.Category,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getIncome = `SELECT id, account_id, date, amount_cents, description, category, created_at, updated_at
FROM incomes WHERE id = ?`

func (q *Queries) GetIncome(ctx context.Context, id string) (Income, error) {
	row := q.db.QueryRowContext(ctx, getIncome, id)
	var i Income
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Date,
		&i.AmountCents,
		&i.Description,
		&i.Category,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateIncome = `UPDATE incomes
SET account_id = ?, date = ?, amount_cents = ?, description = ?, category = ?, updated_at = ?
WHERE id = ?`

type UpdateIncomeParams struct {
	AccountID   string
	Date        int64
	AmountCents int64
	Description string
	Category    string
	UpdatedAt   int64
	ID          string
}

func (q *Queries) UpdateIncome(ctx context.Context, arg UpdateIncomeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateIncome,
		arg.AccountID,
		arg.Date,
		arg.AmountCents,
		arg.Description,
		arg.Category,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteIncome = `DELETE FROM incomes WHERE id = ?`

func (q *Queries) DeleteIncome(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteIncome, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createTransfer = `INSERT INTO transfers (
	id, from_account_id, to_account_id, transfer_type_id, date, amount_cents, description, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, from_account_id, to_account_id, transfer_type_id, date, amount_cents, description, created_at, updated_at`

type CreateTransferParams struct {
	ID             string
	FromAccountID  string
	ToAccountID    string
	TransferTypeID string
	Date           int64
	AmountCents    int64
	Description    string
	CreatedAt      int64
	UpdatedAt      int64
}

func (q *Queries) CreateTransfer(ctx context.Context, arg CreateTransferParams) (Transfer, error) {
	row := q.db.QueryRowContext(ctx, createTransfer,
		arg.ID,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.TransferTypeID,
		arg.Date,
		arg.AmountCents,
		arg.Description,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Transfer
	err := row.Scan(
		&i.ID,
		&i.FromAccountID,
		&i.ToAccountID,
		&i.TransferTypeID,
		&i.Date,
		&i.AmountCents,
		&i.Description,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTransfer = `SELECT id, from_account_id, to_account_id, transfer_type_id, date, amount_cents, description, created_at, updated_at
FROM transfers WHERE id = ?`

func (q *Queries) GetTransfer(ctx context.Context, id string) (Transfer, error) {
	row := q.db.QueryRowContext(ctx, getTransfer, id)
	var i Transfer
	err := row.Scan(
		&i.ID,
		&i.FromAccountID,
		&i.ToAccountID,
		&i.TransferTypeID,
		&i.Date,
		&i.AmountCents,
		&i.Description,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateTransfer = `UPDATE transfers
SET from_account_id = ?, to_account_id = ?, transfer_type_id = ?, date = ?, amount_cents = ?, description = ?, updated_at = ?
WHERE id = ?`

type UpdateTransferParams struct {
	FromAccountID  string
	ToAccountID    string
	TransferTypeID string
	Date           int64
	AmountCents    int64
	Description    string
	UpdatedAt      int64
	ID             string
}

func (q *Queries) UpdateTransfer(ctx context.Context, arg UpdateTransferParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransfer,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.TransferTypeID,
		arg.Date,
		arg.AmountCents,
		arg.Description,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransfer = `DELETE FROM transfers WHERE id = ?`

func (q *Queries) DeleteTransfer(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransfer, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
