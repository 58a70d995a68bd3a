package storage

import "database/sql"

// Row types mirror the tables one to one. Dates are unix milliseconds and
// amounts are integer cents.

type Account struct {
	ID                            string
	UserID                        string
	Name                          string
	AccountType                   string
	BalanceCents                  int64
	StatementDate                 sql.NullInt64
	DueDate                       sql.NullInt64
	StatementBalanceCents         sql.NullInt64
	LastStatementCalculationDate  sql.NullInt64
	PreviousStatementBalanceCents int64
	LastCycleStart                sql.NullInt64
	CreatedAt                     int64
	UpdatedAt                     int64
}

type TransferType struct {
	ID   string
	Name string
}

type Expense struct {
	ID          string
	AccountID   string
	Date        int64
	AmountCents int64
	Description string
	Category    string
	CreatedAt   int64
	UpdatedAt   int64
}

type Income struct {
	ID          string
	AccountID   string
	Date        int64
	AmountCents int64
	Description string
	Category    string
	CreatedAt   int64
	UpdatedAt   int64
}

type Transfer struct {
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
