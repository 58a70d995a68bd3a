package core

import (
	"testing"
	"time"
)

func manila(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestClosedCycleWindow(t *testing.T) {
	loc := manila(t)

	tests := []struct {
		name         string
		statementDay int
		closedAt     time.Time
		wantStart    time.Time
		wantEnd      time.Time
	}{
		{
			name:         "regular monthly close",
			statementDay: 15,
			closedAt:     time.Date(2024, 2, 15, 9, 30, 0, 0, loc),
			wantStart:    time.Date(2024, 1, 15, 0, 0, 0, 0, loc),
			wantEnd:      time.Date(2024, 2, 14, 23, 59, 59, 999999999, loc),
		},
		{
			name:         "january close starts in previous year",
			statementDay: 10,
			closedAt:     time.Date(2024, 1, 10, 0, 5, 0, 0, loc),
			wantStart:    time.Date(2023, 12, 10, 0, 0, 0, 0, loc),
			wantEnd:      time.Date(2024, 1, 9, 23, 59, 59, 999999999, loc),
		},
		{
			name:         "statement day clamped to short previous month",
			statementDay: 31,
			closedAt:     time.Date(2024, 3, 31, 8, 0, 0, 0, loc),
			wantStart:    time.Date(2024, 2, 29, 0, 0, 0, 0, loc),
			wantEnd:      time.Date(2024, 3, 30, 23, 59, 59, 999999999, loc),
		},
		{
			name:         "close on first of month ends on last day of previous month",
			statementDay: 1,
			closedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, loc),
			wantStart:    time.Date(2024, 2, 1, 0, 0, 0, 0, loc),
			wantEnd:      time.Date(2024, 2, 29, 23, 59, 59, 999999999, loc),
		},
		{
			name:         "closing instant given in UTC is read in the operating zone",
			statementDay: 15,
			closedAt:     time.Date(2024, 2, 14, 18, 0, 0, 0, time.UTC), // 02:00 on the 15th in Manila
			wantStart:    time.Date(2024, 1, 15, 0, 0, 0, 0, loc),
			wantEnd:      time.Date(2024, 2, 14, 23, 59, 59, 999999999, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ClosedCycleWindow(tt.statementDay, tt.closedAt, loc)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", w.End, tt.wantEnd)
			}
		})
	}
}

func TestCycleSince(t *testing.T) {
	loc := manila(t)

	tests := []struct {
		name          string
		previousClose time.Time
		closedAt      time.Time
		wantStart     time.Time
		wantEnd       time.Time
	}{
		{
			name:          "one month apart matches the regular window",
			previousClose: time.Date(2024, 1, 15, 0, 10, 0, 0, loc),
			closedAt:      time.Date(2024, 2, 15, 0, 10, 0, 0, loc),
			wantStart:     time.Date(2024, 1, 15, 0, 0, 0, 0, loc),
			wantEnd:       time.Date(2024, 2, 14, 23, 59, 59, 999999999, loc),
		},
		{
			name:          "missed month spans both months",
			previousClose: time.Date(2024, 1, 15, 0, 10, 0, 0, loc),
			closedAt:      time.Date(2024, 3, 15, 0, 10, 0, 0, loc),
			wantStart:     time.Date(2024, 1, 15, 0, 0, 0, 0, loc),
			wantEnd:       time.Date(2024, 3, 14, 23, 59, 59, 999999999, loc),
		},
		{
			name:          "statement day moved later",
			previousClose: time.Date(2024, 2, 15, 0, 10, 0, 0, loc),
			closedAt:      time.Date(2024, 3, 20, 0, 10, 0, 0, loc),
			wantStart:     time.Date(2024, 2, 15, 0, 0, 0, 0, loc),
			wantEnd:       time.Date(2024, 3, 19, 23, 59, 59, 999999999, loc),
		},
		{
			name:          "previous close given in UTC is read in the operating zone",
			previousClose: time.Date(2024, 1, 14, 17, 0, 0, 0, time.UTC),
			closedAt:      time.Date(2024, 2, 15, 1, 0, 0, 0, loc),
			wantStart:     time.Date(2024, 1, 15, 0, 0, 0, 0, loc),
			wantEnd:       time.Date(2024, 2, 14, 23, 59, 59, 999999999, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := CycleSince(tt.previousClose, tt.closedAt, loc)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", w.End, tt.wantEnd)
			}
		})
	}
}

func TestLastClosedCycleUsesStoredStart(t *testing.T) {
	loc := manila(t)
	day := 20
	start := time.Date(2024, 2, 15, 0, 0, 0, 0, loc)
	closed := time.Date(2024, 3, 20, 0, 10, 0, 0, loc)
	acc := Account{AccountType: CreditCard, StatementDate: &day, LastStatementCalculationDate: &closed, LastCycleStart: &start}

	w, ok := acc.LastClosedCycle(loc)
	if !ok {
		t.Fatal("expected a closed cycle")
	}
	if !w.Start.Equal(start) {
		t.Errorf("Start = %v, want %v", w.Start, start)
	}

	acc.LastCycleStart = nil
	w, _ = acc.LastClosedCycle(loc)
	if want := time.Date(2024, 2, 20, 0, 0, 0, 0, loc); !w.Start.Equal(want) {
		t.Errorf("fallback Start = %v, want %v", w.Start, want)
	}
}

func TestCycleWindowContains(t *testing.T) {
	loc := manila(t)
	w := ClosedCycleWindow(15, time.Date(2024, 2, 15, 0, 0, 0, 0, loc), loc)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"first instant of cycle", time.Date(2024, 1, 15, 0, 0, 0, 0, loc), true},
		{"day before cycle", time.Date(2024, 1, 14, 23, 59, 59, 0, loc), false},
		{"middle of cycle", time.Date(2024, 1, 31, 12, 0, 0, 0, loc), true},
		{"last millisecond of cycle", time.Date(2024, 2, 14, 23, 59, 59, 999000000, loc), true},
		{"first instant of next day", time.Date(2024, 2, 15, 0, 0, 0, 0, loc), false},
		{"utc instant that is the next day locally", time.Date(2024, 2, 14, 16, 0, 0, 0, time.UTC), false},
		{"utc instant inside the cycle locally", time.Date(2024, 1, 14, 16, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestIsStatementDay(t *testing.T) {
	tests := []struct {
		name         string
		statementDay int
		today        time.Time
		want         bool
	}{
		{"exact day", 15, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), true},
		{"different day", 15, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), false},
		{"31st on last day of april", 31, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), true},
		{"31st on april 29", 31, time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC), false},
		{"30th on leap february end", 30, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"29th on non-leap february end", 29, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStatementDay(tt.statementDay, tt.today); got != tt.want {
				t.Errorf("IsStatementDay(%d, %v) = %v, want %v", tt.statementDay, tt.today, got, tt.want)
			}
		})
	}
}

func TestSameMonth(t *testing.T) {
	loc := manila(t)
	a := time.Date(2024, 1, 31, 17, 0, 0, 0, time.UTC) // Feb 1 in Manila
	b := time.Date(2024, 2, 15, 0, 0, 0, 0, loc)
	if !SameMonth(a, b, loc) {
		t.Fatal("expected same month in Manila")
	}
	if SameMonth(a, b, time.UTC) {
		t.Fatal("expected different months in UTC")
	}
	if SameMonth(time.Date(2023, 2, 1, 0, 0, 0, 0, loc), b, loc) {
		t.Fatal("same month in different years must not match")
	}
}

func TestNextDayOfMonth(t *testing.T) {
	loc := manila(t)
	tests := []struct {
		name string
		day  int
		from time.Time
		want time.Time
	}{
		{"later this month", 20, time.Date(2024, 3, 5, 10, 0, 0, 0, loc), time.Date(2024, 3, 20, 0, 0, 0, 0, loc)},
		{"same day", 5, time.Date(2024, 3, 5, 23, 0, 0, 0, loc), time.Date(2024, 3, 5, 0, 0, 0, 0, loc)},
		{"rolls to next month", 3, time.Date(2024, 3, 5, 0, 0, 0, 0, loc), time.Date(2024, 4, 3, 0, 0, 0, 0, loc)},
		{"clamped in april", 31, time.Date(2024, 4, 2, 0, 0, 0, 0, loc), time.Date(2024, 4, 30, 0, 0, 0, 0, loc)},
		{"clamped next february", 30, time.Date(2024, 1, 31, 0, 0, 0, 0, loc), time.Date(2024, 2, 29, 0, 0, 0, 0, loc)},
		{"across year end", 10, time.Date(2024, 12, 11, 0, 0, 0, 0, loc), time.Date(2025, 1, 10, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextDayOfMonth(tt.day, tt.from, loc); !got.Equal(tt.want) {
				t.Errorf("NextDayOfMonth(%d, %v) = %v, want %v", tt.day, tt.from, got, tt.want)
			}
		})
	}
}

func TestAccountNextStatementAndDueDate(t *testing.T) {
	loc := manila(t)
	day, due := 15, 5
	closed := time.Date(2024, 3, 15, 1, 0, 0, 0, loc)
	acc := Account{AccountType: CreditCard, StatementDate: &day, DueDate: &due, LastStatementCalculationDate: &closed}

	next, ok := acc.NextStatementDate(time.Date(2024, 3, 15, 12, 0, 0, 0, loc), loc)
	if !ok || !next.Equal(time.Date(2024, 4, 15, 0, 0, 0, 0, loc)) {
		t.Fatalf("NextStatementDate = %v, %v; want April 15", next, ok)
	}

	dueAt, ok := acc.PaymentDueDate(loc)
	if !ok || !dueAt.Equal(time.Date(2024, 4, 5, 0, 0, 0, 0, loc)) {
		t.Fatalf("PaymentDueDate = %v, %v; want April 5", dueAt, ok)
	}

	acc.LastStatementCalculationDate = nil
	next, ok = acc.NextStatementDate(time.Date(2024, 3, 10, 0, 0, 0, 0, loc), loc)
	if !ok || !next.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, loc)) {
		t.Fatalf("transitional NextStatementDate = %v, %v; want March 15", next, ok)
	}
	if _, ok := acc.PaymentDueDate(loc); ok {
		t.Fatal("transitional card must not report a due date")
	}

	if _, ok := (Account{AccountType: Checking}).NextStatementDate(closed, loc); ok {
		t.Fatal("non-card must not report a statement date")
	}
}
