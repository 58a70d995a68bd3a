package memory

import (
	"context"
	"fmt"
	"sync"

	ports "cardcycle/internal/sheets"
)

// Store keeps exported statement rows in memory. It stands in for Google
// Sheets when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []ports.StatementRow
}

var (
	_ ports.StatementWriter = (*Store)(nil)
	_ ports.StatementLister = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendStatement stores the row and returns a synthetic row reference.
func (s *Store) AppendStatement(_ context.Context, row ports.StatementRow) (string, error) {
	if row.AccountID == "" {
		return "", fmt.Errorf("missing account id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// ListStatements returns rows closed in year, in insertion order.
func (s *Store) ListStatements(_ context.Context, year int) ([]ports.StatementRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.StatementRow
	for _, r := range s.rows {
		if r.ClosedAt.Year() == year {
			out = append(out, r)
		}
	}
	return out, nil
}
