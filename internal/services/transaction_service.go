package services

import (
	"context"
	"fmt"

	"cardcycle/internal/core"
)

// TransactionStore persists transactions together with their running
// balance effect. Update and delete return the row as it was before.
type TransactionStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (prev, cur core.Expense, err error)
	DeleteExpense(ctx context.Context, id string) (core.Expense, error)

	CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
	UpdateIncome(ctx context.Context, in core.Income) (prev, cur core.Income, err error)
	DeleteIncome(ctx context.Context, id string) (core.Income, error)

	CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error)
	UpdateTransfer(ctx context.Context, t core.Transfer) (prev, cur core.Transfer, err error)
	DeleteTransfer(ctx context.Context, id string) (core.Transfer, error)
}

// TransactionService orchestrates transaction writes and notifies the
// observer once the write is committed. Observer problems never fail the
// request.
type TransactionService struct {
	store    TransactionStore
	observer TransactionObserver
}

func NewTransactionService(store TransactionStore, observer TransactionObserver) *TransactionService {
	return &TransactionService{
		store:    store,
		observer: observer,
	}
}

func (s *TransactionService) notify(ctx context.Context, change core.TransactionChange) {
	if s.observer == nil {
		return
	}
	s.observer.TransactionChanged(ctx, change)
}

func (s *TransactionService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindExpense, Current: created.Ref()})
	return created, nil
}

func (s *TransactionService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	prev, cur, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindExpense, Current: cur.Ref(), Previous: prev.Ref()})
	return cur, nil
}

func (s *TransactionService) DeleteExpense(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindExpense, Previous: deleted.Ref()})
	return nil
}

func (s *TransactionService) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	created, err := s.store.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindIncome, Current: created.Ref()})
	return created, nil
}

func (s *TransactionService) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	prev, cur, err := s.store.UpdateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindIncome, Current: cur.Ref(), Previous: prev.Ref()})
	return cur, nil
}

func (s *TransactionService) DeleteIncome(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteIncome(ctx, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindIncome, Previous: deleted.Ref()})
	return nil
}

func (s *TransactionService) CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	created, err := s.store.CreateTransfer(ctx, t)
	if err != nil {
		return core.Transfer{}, fmt.Errorf("save transfer: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindTransfer, Current: created.Ref()})
	return created, nil
}

func (s *TransactionService) UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	prev, cur, err := s.store.UpdateTransfer(ctx, t)
	if err != nil {
		return core.Transfer{}, fmt.Errorf("update transfer: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindTransfer, Current: cur.Ref(), Previous: prev.Ref()})
	return cur, nil
}

func (s *TransactionService) DeleteTransfer(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteTransfer(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transfer: %w", err)
	}
	s.notify(ctx, core.TransactionChange{Kind: core.KindTransfer, Previous: deleted.Ref()})
	return nil
}
