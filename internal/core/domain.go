package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Cash       AccountType = "CASH"
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	CreditCard AccountType = "CREDIT_CARD"
	EWallet    AccountType = "E_WALLET"
)

// CreditCardPaymentType is the transfer type name that marks a transfer as
// a payment towards a card's owed balance.
const CreditCardPaymentType = "Credit Card Payment"

type (
	AccountType string

	Account struct {
		ID          string
		UserID      string
		Name        string
		AccountType AccountType
		Balance     Money // running balance; amount owed for credit cards

		StatementDate                *int // day of month, nil when not configured
		DueDate                      *int
		StatementBalance             *Money
		LastStatementCalculationDate *time.Time
		LastCycleStart               *time.Time // first day of the last closed cycle
		PreviousStatementBalance     Money

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Expense struct {
		ID          string
		AccountID   string
		Date        time.Time
		Amount      Money
		Description string
		Category    string
	}

	Income struct {
		ID          string
		AccountID   string
		Date        time.Time
		Amount      Money
		Description string
		Category    string
	}

	Transfer struct {
		ID             string
		FromAccountID  string
		ToAccountID    string
		TransferTypeID string
		Date           time.Time
		Amount         Money
		Description    string
	}

	TransferType struct {
		ID   string
		Name string
	}
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrTransferTypeNotFound   = errors.New("transfer type not found")
	ErrNotCreditCard          = errors.New("account is not a credit card")
	ErrStatementNotConfigured = errors.New("statement date not configured")

	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDay         = errors.New("invalid day of month")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyAccount       = errors.New("empty account id")
	ErrSameAccount        = errors.New("transfer source and destination must differ")
	ErrEmptyTransferType  = errors.New("empty transfer type")
)

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Cash, Checking, Savings, CreditCard, EWallet:
		return true
	default:
		return false
	}
}

// IsCreditCard reports whether the account takes part in statement cycles.
func (a Account) IsCreditCard() bool {
	return a.AccountType == CreditCard
}

// StatementState derives the statement-tracking state of the account.
func (a Account) StatementState() StatementState {
	switch {
	case !a.IsCreditCard() || a.StatementDate == nil:
		return StatementUnconfigured
	case a.LastStatementCalculationDate == nil:
		return StatementTransitional
	default:
		return StatementActive
	}
}

// LastClosedCycle returns the window of the most recently closed cycle, the
// same one the roll-over billed. ok is false unless the account is ACTIVE.
// Cards closed before the cycle start was stored fall back to the window
// derived from the statement day.
func (a Account) LastClosedCycle(loc *time.Location) (CycleWindow, bool) {
	if a.StatementState() != StatementActive {
		return CycleWindow{}, false
	}
	if a.LastCycleStart != nil {
		return CycleSince(*a.LastCycleStart, *a.LastStatementCalculationDate, loc), true
	}
	return ClosedCycleWindow(*a.StatementDate, *a.LastStatementCalculationDate, loc), true
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !a.AccountType.IsValid() {
		return ErrInvalidAccountType
	}
	if err := ValidateDayOfMonth(a.StatementDate); err != nil {
		return err
	}
	if err := ValidateDayOfMonth(a.DueDate); err != nil {
		return err
	}
	return nil
}

// ValidateDayOfMonth accepts nil or a value between 1 and 31.
func ValidateDayOfMonth(day *int) error {
	if day == nil {
		return nil
	}
	if *day < 1 || *day > 31 {
		return ErrInvalidDay
	}
	return nil
}

func validateEntry(accountID string, date time.Time, amount Money, description string) error {
	if strings.TrimSpace(accountID) == "" {
		return ErrEmptyAccount
	}
	if date.IsZero() {
		return ErrInvalidDate
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	if len(description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (e Expense) Validate() error {
	return validateEntry(e.AccountID, e.Date, e.Amount, e.Description)
}

func (i Income) Validate() error {
	return validateEntry(i.AccountID, i.Date, i.Amount, i.Description)
}

func (t Transfer) Validate() error {
	if err := validateEntry(t.FromAccountID, t.Date, t.Amount, t.Description); err != nil {
		return err
	}
	if strings.TrimSpace(t.ToAccountID) == "" {
		return ErrEmptyAccount
	}
	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}
	if strings.TrimSpace(t.TransferTypeID) == "" {
		return ErrEmptyTransferType
	}
	return nil
}
