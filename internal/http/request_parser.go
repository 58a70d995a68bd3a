// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request bodies.
// Handlers decode into the request types below and convert them to domain
// values, so amount and date parsing lives in one place.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardcycle/internal/core"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

// validationError marks a malformed field; it maps to 422.
type validationError struct {
	field string
	err   error
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %v", e.field, e.err)
}

func (e *validationError) Unwrap() error { return e.err }

func invalidField(field string, err error) error {
	return &validationError{field: field, err: err}
}

// decodeJSON reads a single JSON object into v. Unknown fields and trailing
// data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	if dec.More() {
		return errors.New("malformed request body: trailing data")
	}
	return nil
}

// parseDate accepts YYYY-MM-DD, taken as midnight in loc, or an RFC 3339
// timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, core.ErrInvalidDate
}

// parseAmount accepts a positive decimal given as a JSON number or string.
func parseAmount(n json.Number) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(n.String())
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type accountRequest struct {
	Name          string          `json:"name"`
	AccountType   string          `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	StatementDate *int            `json:"statement_date"`
	DueDate       *int            `json:"due_date"`
}

func (req accountRequest) toAccount() core.Account {
	return core.Account{
		Name:          sanitizeInput(req.Name),
		AccountType:   core.AccountType(strings.ToUpper(strings.TrimSpace(req.AccountType))),
		Balance:       core.MoneyFromDecimal(req.Balance),
		StatementDate: req.StatementDate,
		DueDate:       req.DueDate,
	}
}

type statementConfigRequest struct {
	StatementDate *int `json:"statement_date"`
	DueDate       *int `json:"due_date"`
}

type entryRequest struct {
	AccountID   string      `json:"account_id"`
	Date        string      `json:"date"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
}

func (req entryRequest) parse(loc *time.Location) (accountID string, date time.Time, amount core.Money, err error) {
	date, err = parseDate(req.Date, loc)
	if err != nil {
		return "", time.Time{}, core.Money{}, invalidField("date", err)
	}
	amount, err = parseAmount(req.Amount)
	if err != nil {
		return "", time.Time{}, core.Money{}, invalidField("amount", err)
	}
	return strings.TrimSpace(req.AccountID), date, amount, nil
}

func (req entryRequest) toExpense(id string, loc *time.Location) (core.Expense, error) {
	accountID, date, amount, err := req.parse(loc)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          id,
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
	}, nil
}

func (req entryRequest) toIncome(id string, loc *time.Location) (core.Income, error) {
	accountID, date, amount, err := req.parse(loc)
	if err != nil {
		return core.Income{}, err
	}
	return core.Income{
		ID:          id,
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
	}, nil
}

type transferRequest struct {
	FromAccountID  string      `json:"from_account_id"`
	ToAccountID    string      `json:"to_account_id"`
	TransferTypeID string      `json:"transfer_type_id"`
	Date           string      `json:"date"`
	Amount         json.Number `json:"amount"`
	Description    string      `json:"description"`
}

func (req transferRequest) toTransfer(id string, loc *time.Location) (core.Transfer, error) {
	date, err := parseDate(req.Date, loc)
	if err != nil {
		return core.Transfer{}, invalidField("date", err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transfer{}, invalidField("amount", err)
	}
	return core.Transfer{
		ID:             id,
		FromAccountID:  strings.TrimSpace(req.FromAccountID),
		ToAccountID:    strings.TrimSpace(req.ToAccountID),
		TransferTypeID: strings.TrimSpace(req.TransferTypeID),
		Date:           date,
		Amount:         amount,
		Description:    sanitizeInput(req.Description),
	}, nil
}
