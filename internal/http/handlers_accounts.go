package http

import (
	"log/slog"
	"net/http"
	"time"

	"cardcycle/internal/core"
	applog "cardcycle/internal/log"

	"github.com/shopspring/decimal"
)

type accountView struct {
	ID                           string              `json:"id"`
	Name                         string              `json:"name"`
	AccountType                  core.AccountType    `json:"account_type"`
	Balance                      decimal.Decimal     `json:"balance"`
	StatementDate                *int                `json:"statement_date"`
	DueDate                      *int                `json:"due_date"`
	StatementState               core.StatementState `json:"statement_state"`
	StatementBalance             *decimal.Decimal    `json:"statement_balance"`
	PreviousStatementBalance     decimal.Decimal     `json:"previous_statement_balance"`
	LastStatementCalculationDate *time.Time          `json:"last_statement_calculation_date"`
	CreatedAt                    time.Time           `json:"created_at"`
	UpdatedAt                    time.Time           `json:"updated_at"`
}

func newAccountView(a core.Account) accountView {
	v := accountView{
		ID:                           a.ID,
		Name:                         a.Name,
		AccountType:                  a.AccountType,
		Balance:                      a.Balance.Decimal(),
		StatementDate:                a.StatementDate,
		DueDate:                      a.DueDate,
		StatementState:               a.StatementState(),
		PreviousStatementBalance:     a.PreviousStatementBalance.Decimal(),
		LastStatementCalculationDate: a.LastStatementCalculationDate,
		CreatedAt:                    a.CreatedAt,
		UpdatedAt:                    a.UpdatedAt,
	}
	if a.StatementBalance != nil {
		d := a.StatementBalance.Decimal()
		v.StatementBalance = &d
	}
	return v
}

type cycleView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type activityView struct {
	Expenses     decimal.Decimal `json:"expenses"`
	CashAdvances decimal.Decimal `json:"cash_advances"`
	Payments     decimal.Decimal `json:"payments"`
	Credits      decimal.Decimal `json:"credits"`
}

type statementView struct {
	AccountID                    string              `json:"account_id"`
	State                        core.StatementState `json:"state"`
	StatementDate                *int                `json:"statement_date"`
	DueDate                      *int                `json:"due_date"`
	StatementBalance             *decimal.Decimal    `json:"statement_balance"`
	PreviousStatementBalance     decimal.Decimal     `json:"previous_statement_balance"`
	LastStatementCalculationDate *time.Time          `json:"last_statement_calculation_date"`
	LastCycle                    *cycleView          `json:"last_cycle,omitempty"`
	Activity                     *activityView       `json:"activity,omitempty"`
	NextStatementDate            string              `json:"next_statement_date,omitempty"`
	PaymentDueDate               string              `json:"payment_due_date,omitempty"`
}

type transferTypeView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}

	acc, err := s.accounts.CreateAccount(r.Context(), req.toAccount())
	if err != nil {
		writeServiceError(w, r, applog.OpCreate, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/accounts/"+acc.ID).
		JSON(newAccountView(acc)).
		Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.accounts.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(newAccountView(acc)).Write(w)
}

func (s *Server) handleConfigureStatement(w http.ResponseWriter, r *http.Request) {
	var req statementConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}

	acc, err := s.accounts.ConfigureStatement(r.Context(), r.PathValue("id"), req.StatementDate, req.DueDate)
	if err != nil {
		writeServiceError(w, r, applog.OpConfig, err)
		return
	}

	slog.InfoContext(r.Context(), "Statement configured via API",
		applog.FieldCardID, acc.ID,
		"statement_state", acc.StatementState())

	view, err := s.statementView(r, acc)
	if err != nil {
		writeServiceError(w, r, applog.OpConfig, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleGetStatement(w http.ResponseWriter, r *http.Request) {
	acc, err := s.accounts.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, applog.OpRead, err)
		return
	}
	if !acc.IsCreditCard() {
		writeServiceError(w, r, applog.OpRead, core.ErrNotCreditCard)
		return
	}

	view, err := s.statementView(r, acc)
	if err != nil {
		writeServiceError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

// statementView describes the card's cycle state. The per-bucket activity
// of the last closed cycle is read live, so it reflects later edits.
func (s *Server) statementView(r *http.Request, acc core.Account) (statementView, error) {
	av := newAccountView(acc)
	v := statementView{
		AccountID:                    acc.ID,
		State:                        av.StatementState,
		StatementDate:                acc.StatementDate,
		DueDate:                      acc.DueDate,
		StatementBalance:             av.StatementBalance,
		PreviousStatementBalance:     av.PreviousStatementBalance,
		LastStatementCalculationDate: acc.LastStatementCalculationDate,
	}

	if next, ok := acc.NextStatementDate(s.now(), s.loc); ok {
		v.NextStatementDate = next.Format(dateLayout)
	}
	if due, ok := acc.PaymentDueDate(s.loc); ok {
		v.PaymentDueDate = due.Format(dateLayout)
	}

	w, ok := acc.LastClosedCycle(s.loc)
	if !ok {
		return v, nil
	}
	v.LastCycle = &cycleView{Start: w.Start.Format(dateLayout), End: w.End.Format(dateLayout)}

	if s.activity != nil {
		act, err := s.activity.Activity(r.Context(), acc.ID, w)
		if err != nil {
			return statementView{}, err
		}
		v.Activity = &activityView{
			Expenses:     act.Expenses.Decimal(),
			CashAdvances: act.CashAdvances.Decimal(),
			Payments:     act.Payments.Decimal(),
			Credits:      act.Credits.Decimal(),
		}
	}
	return v, nil
}

func (s *Server) handleListTransferTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.accounts.ListTransferTypes(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpList, err)
		return
	}
	out := make([]transferTypeView, 0, len(types))
	for _, tt := range types {
		out = append(out, transferTypeView{ID: tt.ID, Name: tt.Name})
	}
	NewJSONResponse().JSON(map[string]any{"transfer_types": out}).Write(w)
}
