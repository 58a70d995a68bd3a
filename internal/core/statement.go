package core

import "time"

// StatementState is the statement-tracking lifecycle of a credit card:
// UNCONFIGURED -> TRANSITIONAL -> ACTIVE. ACTIVE never goes back.
type StatementState string

const (
	StatementUnconfigured StatementState = "UNCONFIGURED"
	StatementTransitional StatementState = "TRANSITIONAL"
	StatementActive       StatementState = "ACTIVE"
)

// CardActivity holds the per-bucket sums of a card's transactions inside a
// cycle window, all in cents.
type CardActivity struct {
	Expenses     Money // expenses charged to the card
	CashAdvances Money // non-payment transfers out of the card
	Payments     Money // Credit Card Payment transfers into the card
	Credits      Money // incomes (rebates, refunds) posted to the card
}

// StatementBalance is the net amount owed for the cycle. It can be negative
// when payments and credits exceed the cycle's charges.
func (a CardActivity) StatementBalance() Money {
	return Money{Cents: a.Expenses.Cents + a.CashAdvances.Cents - a.Payments.Cents - a.Credits.Cents}
}

// TransactionKind identifies which transaction table a change came from.
type TransactionKind string

const (
	KindExpense  TransactionKind = "expense"
	KindIncome   TransactionKind = "income"
	KindTransfer TransactionKind = "transfer"
)

// TransactionRef is the part of a transaction that can move a card's
// statement balance.
type TransactionRef struct {
	AccountID      string // expense, income
	FromAccountID  string // transfer
	ToAccountID    string // transfer
	TransferTypeID string // transfer
	Date           time.Time
}

// TransactionChange describes one committed mutation. Current is nil on
// delete, Previous is nil on create.
type TransactionChange struct {
	Kind     TransactionKind
	Current  *TransactionRef
	Previous *TransactionRef
}

func (e Expense) Ref() *TransactionRef {
	return &TransactionRef{AccountID: e.AccountID, Date: e.Date}
}

func (i Income) Ref() *TransactionRef {
	return &TransactionRef{AccountID: i.AccountID, Date: i.Date}
}

func (t Transfer) Ref() *TransactionRef {
	return &TransactionRef{
		FromAccountID:  t.FromAccountID,
		ToAccountID:    t.ToAccountID,
		TransferTypeID: t.TransferTypeID,
		Date:           t.Date,
	}
}
