package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cardcycle/internal/core"

	"github.com/google/uuid"
)

// Every transaction write below runs in one database transaction together
// with the running-balance adjustment of the accounts it touches, so a row
// never exists without its balance effect.

// applyOwed moves an account's running balance by owedCents expressed as
// "amount owed": positive for a charge. Credit cards store the owed amount
// directly, every other account type stores available funds.
func applyOwed(ctx context.Context, q *Queries, accountID string, owedCents, now int64) error {
	acc, err := q.GetAccount(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	delta := owedCents
	if acc.AccountType != string(core.CreditCard) {
		delta = -owedCents
	}
	if _, err := q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{
		DeltaCents: delta,
		UpdatedAt:  now,
		ID:         accountID,
	}); err != nil {
		return fmt.Errorf("adjust account balance: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := toMillis(r.now())

	var created Expense
	err := r.inTx(ctx, func(q *Queries) error {
		if err := applyOwed(ctx, q, e.AccountID, e.Amount.Cents, now); err != nil {
			return err
		}
		row, err := q.CreateExpense(ctx, CreateExpenseParams{
			ID:          e.ID,
			AccountID:   e.AccountID,
			Date:        toMillis(e.Date),
			AmountCents: e.Amount.Cents,
			Description: e.Description,
			Category:    e.Category,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		created = row
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", created.ID,
		"account_id", created.AccountID,
		"amount_cents", created.AmountCents)

	return expenseFromRow(created), nil
}

// UpdateExpense replaces an expense and returns the row as it was before
// and after the change.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (prev, cur core.Expense, err error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.Expense{}, err
	}
	now := toMillis(r.now())

	var old Expense
	err = r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetExpense(ctx, e.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		old = row

		if err := applyOwed(ctx, q, old.AccountID, -old.AmountCents, now); err != nil {
			return err
		}
		if err := applyOwed(ctx, q, e.AccountID, e.Amount.Cents, now); err != nil {
			return err
		}
		if _, err := q.UpdateExpense(ctx, UpdateExpenseParams{
			AccountID:   e.AccountID,
			Date:        toMillis(e.Date),
			AmountCents: e.Amount.Cents,
			Description: e.Description,
			Category:    e.Category,
			UpdatedAt:   now,
			ID:          e.ID,
		}); err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID, "account_id", e.AccountID)
	return expenseFromRow(old), e, nil
}

// DeleteExpense removes an expense and returns the deleted row.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) (core.Expense, error) {
	now := toMillis(r.now())

	var old Expense
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetExpense(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		old = row
		if err := applyOwed(ctx, q, old.AccountID, -old.AmountCents, now); err != nil {
			return err
		}
		if _, err := q.DeleteExpense(ctx, id); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "account_id", old.AccountID)
	return expenseFromRow(old), nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	now := toMillis(r.now())

	var created Income
	err := r.inTx(ctx, func(q *Queries) error {
		if err := applyOwed(ctx, q, in.AccountID, -in.Amount.Cents, now); err != nil {
			return err
		}
		row, err := q.CreateIncome(ctx, CreateIncomeParams{
			ID:          in.ID,
			AccountID:   in.AccountID,
			Date:        toMillis(in.Date),
			AmountCents: in.Amount.Cents,
			Description: in.Description,
			Category:    in.Category,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("create income: %w", err)
		}
		created = row
		return nil
	})
	if err != nil {
		return core.Income{}, err
	}

	slog.InfoContext(ctx, "Income saved to SQLite",
		"id", created.ID,
		"account_id", created.AccountID,
		"amount_cents", created.AmountCents)

	return incomeFromRow(created), nil
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) (prev, cur core.Income, err error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, core.Income{}, err
	}
	now := toMillis(r.now())

	var old Income
	err = r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetIncome(ctx, in.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("get income: %w", err)
		}
		old = row

		if err := applyOwed(ctx, q, old.AccountID, old.AmountCents, now); err != nil {
			return err
		}
		if err := applyOwed(ctx, q, in.AccountID, -in.Amount.Cents, now); err != nil {
			return err
		}
		if _, err := q.UpdateIncome(ctx, UpdateIncomeParams{
			AccountID:   in.AccountID,
			Date:        toMillis(in.Date),
			AmountCents: in.Amount.Cents,
			Description: in.Description,
			Category:    in.Category,
			UpdatedAt:   now,
			ID:          in.ID,
		}); err != nil {
			return fmt.Errorf("update income: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Income{}, core.Income{}, err
	}

	slog.InfoContext(ctx, "Income updated", "id", in.ID, "account_id", in.AccountID)
	return incomeFromRow(old), in, nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id string) (core.Income, error) {
	now := toMillis(r.now())

	var old Income
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetIncome(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("get income: %w", err)
		}
		old = row
		if err := applyOwed(ctx, q, old.AccountID, old.AmountCents, now); err != nil {
			return err
		}
		if _, err := q.DeleteIncome(ctx, id); err != nil {
			return fmt.Errorf("delete income: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Income{}, err
	}

	slog.InfoContext(ctx, "Income deleted", "id", id, "account_id", old.AccountID)
	return incomeFromRow(old), nil
}

func applyTransfer(ctx context.Context, q *Queries, from, to string, amountCents, now int64) error {
	if err := applyOwed(ctx, q, from, amountCents, now); err != nil {
		return err
	}
	return applyOwed(ctx, q, to, -amountCents, now)
}

func checkTransferType(ctx context.Context, q *Queries, id string) error {
	_, err := q.GetTransferType(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrTransferTypeNotFound
	}
	if err != nil {
		return fmt.Errorf("get transfer type: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	if err := t.Validate(); err != nil {
		return core.Transfer{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := toMillis(r.now())

	var created Transfer
	err := r.inTx(ctx, func(q *Queries) error {
		if err := checkTransferType(ctx, q, t.TransferTypeID); err != nil {
			return err
		}
		if err := applyTransfer(ctx, q, t.FromAccountID, t.ToAccountID, t.Amount.Cents, now); err != nil {
			return err
		}
		row, err := q.CreateTransfer(ctx, CreateTransferParams{
			ID:             t.ID,
			FromAccountID:  t.FromAccountID,
			ToAccountID:    t.ToAccountID,
			TransferTypeID: t.TransferTypeID,
			Date:           toMillis(t.Date),
			AmountCents:    t.Amount.Cents,
			Description:    t.Description,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		created = row
		return nil
	})
	if err != nil {
		return core.Transfer{}, err
	}

	slog.InfoContext(ctx, "Transfer saved to SQLite",
		"id", created.ID,
		"from_account_id", created.FromAccountID,
		"to_account_id", created.ToAccountID,
		"amount_cents", created.AmountCents)

	return transferFromRow(created), nil
}

func (r *SQLiteRepository) UpdateTransfer(ctx context.Context, t core.Transfer) (prev, cur core.Transfer, err error) {
	if err := t.Validate(); err != nil {
		return core.Transfer{}, core.Transfer{}, err
	}
	now := toMillis(r.now())

	var old Transfer
	err = r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetTransfer(ctx, t.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("get transfer: %w", err)
		}
		old = row

		if err := checkTransferType(ctx, q, t.TransferTypeID); err != nil {
			return err
		}
		if err := applyTransfer(ctx, q, old.FromAccountID, old.ToAccountID, -old.AmountCents, now); err != nil {
			return err
		}
		if err := applyTransfer(ctx, q, t.FromAccountID, t.ToAccountID, t.Amount.Cents, now); err != nil {
			return err
		}
		if _, err := q.UpdateTransfer(ctx, UpdateTransferParams{
			FromAccountID:  t.FromAccountID,
			ToAccountID:    t.ToAccountID,
			TransferTypeID: t.TransferTypeID,
			Date:           toMillis(t.Date),
			AmountCents:    t.Amount.Cents,
			Description:    t.Description,
			UpdatedAt:      now,
			ID:             t.ID,
		}); err != nil {
			return fmt.Errorf("update transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transfer{}, core.Transfer{}, err
	}

	slog.InfoContext(ctx, "Transfer updated", "id", t.ID)
	return transferFromRow(old), t, nil
}

func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, id string) (core.Transfer, error) {
	now := toMillis(r.now())

	var old Transfer
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetTransfer(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("get transfer: %w", err)
		}
		old = row
		if err := applyTransfer(ctx, q, old.FromAccountID, old.ToAccountID, -old.AmountCents, now); err != nil {
			return err
		}
		if _, err := q.DeleteTransfer(ctx, id); err != nil {
			return fmt.Errorf("delete transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transfer{}, err
	}

	slog.InfoContext(ctx, "Transfer deleted", "id", id)
	return transferFromRow(old), nil
}

func expenseFromRow(row Expense) core.Expense {
	return core.Expense{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Date:        fromMillis(row.Date),
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		Category:    row.Category,
	}
}

func incomeFromRow(row Income) core.Income {
	return core.Income{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Date:        fromMillis(row.Date),
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		Category:    row.Category,
	}
}

func transferFromRow(row Transfer) core.Transfer {
	return core.Transfer{
		ID:             row.ID,
		FromAccountID:  row.FromAccountID,
		ToAccountID:    row.ToAccountID,
		TransferTypeID: row.TransferTypeID,
		Date:           fromMillis(row.Date),
		Amount:         core.Money{Cents: row.AmountCents},
		Description:    row.Description,
	}
}
