package amqp

import (
	"encoding/json"
	"time"

	"cardcycle/internal/core"

	"github.com/shopspring/decimal"
)

const (
	EventStatementClosed    = "statement.closed"
	EventStatementCorrected = "statement.corrected"
)

// StatementMessage announces a statement balance that was computed by the
// monthly roll-over or corrected by a retroactive edit.
type StatementMessage struct {
	Event            string          `json:"event"`
	AccountID        string          `json:"account_id"`
	AccountName      string          `json:"account_name"`
	CycleStart       time.Time       `json:"cycle_start"`
	CycleEnd         time.Time       `json:"cycle_end"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	ClosedAt         time.Time       `json:"closed_at"`
	Timestamp        time.Time       `json:"timestamp"`
}

func NewStatementMessage(event string, acc core.Account, w core.CycleWindow, balance core.Money, closedAt time.Time) *StatementMessage {
	return &StatementMessage{
		Event:            event,
		AccountID:        acc.ID,
		AccountName:      acc.Name,
		CycleStart:       w.Start,
		CycleEnd:         w.End,
		StatementBalance: balance.Decimal(),
		ClosedAt:         closedAt,
		Timestamp:        time.Now(),
	}
}

// Balance converts the decimal amount back to cents.
func (m *StatementMessage) Balance() core.Money {
	return core.MoneyFromDecimal(m.StatementBalance)
}

func (m *StatementMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StatementMessageFromJSON(data []byte) (*StatementMessage, error) {
	var msg StatementMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
