package http

import (
	"net/http"
	"time"

	"cardcycle/internal/core"
	applog "cardcycle/internal/log"

	"github.com/shopspring/decimal"
)

type entryView struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

type transferView struct {
	ID             string          `json:"id"`
	FromAccountID  string          `json:"from_account_id"`
	ToAccountID    string          `json:"to_account_id"`
	TransferTypeID string          `json:"transfer_type_id"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
}

func expenseView(e core.Expense) entryView {
	return entryView{ID: e.ID, AccountID: e.AccountID, Date: e.Date, Amount: e.Amount.Decimal(), Description: e.Description, Category: e.Category}
}

func incomeView(i core.Income) entryView {
	return entryView{ID: i.ID, AccountID: i.AccountID, Date: i.Date, Amount: i.Amount.Decimal(), Description: i.Description, Category: i.Category}
}

func newTransferView(t core.Transfer) transferView {
	return transferView{
		ID:             t.ID,
		FromAccountID:  t.FromAccountID,
		ToAccountID:    t.ToAccountID,
		TransferTypeID: t.TransferTypeID,
		Date:           t.Date,
		Amount:         t.Amount.Decimal(),
		Description:    t.Description,
	}
}

// writeMutation handles the shared decode, convert and persist flow of the
// create and update endpoints.
func writeMutation[Req, T, V any](
	s *Server, w http.ResponseWriter, r *http.Request, op string, status int,
	convert func(Req, string, *time.Location) (T, error),
	save func(*http.Request, T) (T, error),
	view func(T) V,
) {
	var req Req
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	v, err := convert(req, r.PathValue("id"), s.loc)
	if err != nil {
		UnprocessableEntityError(r, err.Error()).Write(w)
		return
	}
	saved, err := save(r, v)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	NewJSONResponse().Status(status).JSON(view(saved)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	writeMutation(s, w, r, applog.OpCreate, http.StatusCreated, entryRequest.toExpense,
		func(r *http.Request, e core.Expense) (core.Expense, error) { return s.tx.CreateExpense(r.Context(), e) },
		expenseView)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	writeMutation(s, w, r, applog.OpUpdate, http.StatusOK, entryRequest.toExpense,
		func(r *http.Request, e core.Expense) (core.Expense, error) { return s.tx.UpdateExpense(r.Context(), e) },
		expenseView)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.tx.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	writeMutation(s, w, r, applog.OpCreate, http.StatusCreated, entryRequest.toIncome,
		func(r *http.Request, in core.Income) (core.Income, error) { return s.tx.CreateIncome(r.Context(), in) },
		incomeView)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	writeMutation(s, w, r, applog.OpUpdate, http.StatusOK, entryRequest.toIncome,
		func(r *http.Request, in core.Income) (core.Income, error) { return s.tx.UpdateIncome(r.Context(), in) },
		incomeView)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.tx.DeleteIncome(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	writeMutation(s, w, r, applog.OpCreate, http.StatusCreated, transferRequest.toTransfer,
		func(r *http.Request, t core.Transfer) (core.Transfer, error) { return s.tx.CreateTransfer(r.Context(), t) },
		newTransferView)
}

func (s *Server) handleUpdateTransfer(w http.ResponseWriter, r *http.Request) {
	writeMutation(s, w, r, applog.OpUpdate, http.StatusOK, transferRequest.toTransfer,
		func(r *http.Request, t core.Transfer) (core.Transfer, error) { return s.tx.UpdateTransfer(r.Context(), t) },
		newTransferView)
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	if err := s.tx.DeleteTransfer(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
