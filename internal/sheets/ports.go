package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatementRow is one exported statement event.
type StatementRow struct {
	Event       string
	AccountID   string
	AccountName string
	CycleStart  time.Time
	CycleEnd    time.Time
	Balance     decimal.Decimal
	ClosedAt    time.Time
}

// Ports for outbound adapters.
type (
	StatementWriter interface {
		AppendStatement(ctx context.Context, row StatementRow) (rowRef string, err error)
	}

	// StatementLister reads back the rows exported for a year.
	StatementLister interface {
		ListStatements(ctx context.Context, year int) ([]StatementRow, error)
	}
)

// Header is the column layout shared by all exporters.
var Header = []string{"Closed At", "Account", "Account ID", "Cycle Start", "Cycle End", "Statement Balance", "Event"}

const dateLayout = "2006-01-02"

// Values renders the row in Header order.
func (r StatementRow) Values() []any {
	return []any{
		r.ClosedAt.Format(dateLayout),
		r.AccountName,
		r.AccountID,
		r.CycleStart.Format(dateLayout),
		r.CycleEnd.Format(dateLayout),
		r.Balance.StringFixed(2),
		r.Event,
	}
}

// ParseRow is the inverse of Values. Cells may come back as numbers or
// strings depending on how the sheet formatted them.
func ParseRow(cells []any) (StatementRow, error) {
	if len(cells) < len(Header) {
		return StatementRow{}, fmt.Errorf("short row: %d cells", len(cells))
	}
	col := make([]string, len(cells))
	for i, c := range cells {
		col[i] = strings.TrimSpace(fmt.Sprint(c))
	}

	var (
		row StatementRow
		err error
	)
	if row.ClosedAt, err = time.Parse(dateLayout, col[0]); err != nil {
		return StatementRow{}, fmt.Errorf("closed at: %w", err)
	}
	if row.CycleStart, err = time.Parse(dateLayout, col[3]); err != nil {
		return StatementRow{}, fmt.Errorf("cycle start: %w", err)
	}
	if row.CycleEnd, err = time.Parse(dateLayout, col[4]); err != nil {
		return StatementRow{}, fmt.Errorf("cycle end: %w", err)
	}
	// Sheets may render with a thousands separator.
	if row.Balance, err = decimal.NewFromString(strings.ReplaceAll(col[5], ",", "")); err != nil {
		return StatementRow{}, fmt.Errorf("statement balance: %w", err)
	}
	row.AccountName = col[1]
	row.AccountID = col[2]
	row.Event = col[6]
	return row, nil
}
