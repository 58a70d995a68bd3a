package core

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "Visa", AccountType: CreditCard, StatementDate: intPtr(15), DueDate: intPtr(5)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Account{
		{Name: "", AccountType: CreditCard},
		{Name: "x", AccountType: "LOAN"},
		{Name: "x", AccountType: CreditCard, StatementDate: intPtr(0)},
		{Name: "x", AccountType: CreditCard, StatementDate: intPtr(32)},
		{Name: "x", AccountType: CreditCard, DueDate: intPtr(-1)},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountStatementState(t *testing.T) {
	now := time.Now()
	cases := []struct {
		a    Account
		want StatementState
	}{
		{Account{AccountType: Checking, StatementDate: intPtr(15)}, StatementUnconfigured},
		{Account{AccountType: CreditCard}, StatementUnconfigured},
		{Account{AccountType: CreditCard, StatementDate: intPtr(15)}, StatementTransitional},
		{Account{AccountType: CreditCard, StatementDate: intPtr(15), LastStatementCalculationDate: &now}, StatementActive},
	}
	for i, tc := range cases {
		if got := tc.a.StatementState(); got != tc.want {
			t.Fatalf("case %d: got %s, want %s", i, got, tc.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if err := (Expense{AccountID: "a", Date: date, Amount: Money{Cents: 100}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []interface{ Validate() error }{
		Expense{AccountID: "", Date: date, Amount: Money{Cents: 1}},
		Expense{AccountID: "a", Amount: Money{Cents: 1}},
		Income{AccountID: "a", Date: date, Amount: Money{Cents: 0}},
		Transfer{FromAccountID: "a", ToAccountID: "a", TransferTypeID: "t", Date: date, Amount: Money{Cents: 1}},
		Transfer{FromAccountID: "a", ToAccountID: "b", Date: date, Amount: Money{Cents: 1}},
		Transfer{FromAccountID: "a", TransferTypeID: "t", Date: date, Amount: Money{Cents: 1}},
	}
	for i, v := range bads {
		if err := v.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCardActivityStatementBalance(t *testing.T) {
	a := CardActivity{
		Expenses:     Money{Cents: 120000},
		CashAdvances: Money{Cents: 5000},
		Payments:     Money{Cents: 20000},
		Credits:      Money{Cents: 1000},
	}
	if got := a.StatementBalance().Cents; got != 104000 {
		t.Fatalf("StatementBalance = %d, want 104000", got)
	}
	if got := (CardActivity{Payments: Money{Cents: 500}}).StatementBalance().Cents; got != -500 {
		t.Fatalf("overpaid cycle = %d, want -500", got)
	}
}
