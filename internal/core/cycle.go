package core

import "time"

// CycleWindow is a closed statement cycle: Start is the first instant of the
// opening day, End the last instant of the closing day. Both bounds are
// inclusive.
type CycleWindow struct {
	Start time.Time
	End   time.Time
}

// CycleSince returns the cycle running from the calendar day of
// previousClose up to the end of the day before closedAt, in loc. The
// roll-over bills this window so that nothing between two closings is
// skipped, even after a missed month or a changed statement day.
func CycleSince(previousClose, closedAt time.Time, loc *time.Location) CycleWindow {
	c := closedAt.In(loc)
	return CycleWindow{
		Start: StartOfDay(previousClose, loc),
		End:   EndOfDay(time.Date(c.Year(), c.Month(), c.Day()-1, 0, 0, 0, 0, loc), loc),
	}
}

// ClosedCycleWindow returns the regular cycle closed at closedAt for a card
// whose statement falls on statementDay. The cycle ends on the day before
// closedAt and starts on statementDay of the preceding month, clamped to
// that month's length. All day boundaries are taken in loc. On an unbroken
// monthly schedule it equals CycleSince of the previous closing.
func ClosedCycleWindow(statementDay int, closedAt time.Time, loc *time.Location) CycleWindow {
	c := closedAt.In(loc)

	prev := time.Date(c.Year(), c.Month()-1, 1, 0, 0, 0, 0, loc)
	startDay := EffectiveStatementDay(statementDay, prev.Year(), prev.Month())

	return CycleWindow{
		Start: time.Date(prev.Year(), prev.Month(), startDay, 0, 0, 0, 0, loc),
		End:   EndOfDay(time.Date(c.Year(), c.Month(), c.Day()-1, 0, 0, 0, 0, loc), loc),
	}
}

// Contains reports whether t, truncated to its calendar day in the window's
// location, falls inside the window.
func (w CycleWindow) Contains(t time.Time) bool {
	day := StartOfDay(t, w.Start.Location())
	return !day.Before(w.Start) && !day.After(w.End)
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EffectiveStatementDay clamps statementDay to the length of the month, so a
// card closing on the 31st closes on the 30th in April and on the 28th or
// 29th in February.
func EffectiveStatementDay(statementDay, year int, month time.Month) int {
	if last := DaysInMonth(year, month); statementDay > last {
		return last
	}
	return statementDay
}

// IsStatementDay reports whether today (already in the operating location)
// is the closing day for statementDay.
func IsStatementDay(statementDay int, today time.Time) bool {
	return today.Day() == EffectiveStatementDay(statementDay, today.Year(), today.Month())
}

// SameMonth reports whether a and b fall in the same calendar month in loc.
func SameMonth(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// NextDayOfMonth returns midnight of the first date on or after from's
// calendar day in loc whose day is day, clamped to short months.
func NextDayOfMonth(day int, from time.Time, loc *time.Location) time.Time {
	f := from.In(loc)
	eff := EffectiveStatementDay(day, f.Year(), f.Month())
	if f.Day() <= eff {
		return time.Date(f.Year(), f.Month(), eff, 0, 0, 0, 0, loc)
	}
	next := time.Date(f.Year(), f.Month()+1, 1, 0, 0, 0, 0, loc)
	return time.Date(next.Year(), next.Month(), EffectiveStatementDay(day, next.Year(), next.Month()), 0, 0, 0, 0, loc)
}

// NextStatementDate returns the next closing day of the account, skipping
// the current month when its cycle already closed. ok is false when no
// statement day is configured.
func (a Account) NextStatementDate(now time.Time, loc *time.Location) (time.Time, bool) {
	if !a.IsCreditCard() || a.StatementDate == nil {
		return time.Time{}, false
	}
	from := now
	if a.LastStatementCalculationDate != nil && SameMonth(*a.LastStatementCalculationDate, now, loc) {
		n := now.In(loc)
		from = time.Date(n.Year(), n.Month()+1, 1, 0, 0, 0, 0, loc)
	}
	return NextDayOfMonth(*a.StatementDate, from, loc), true
}

// PaymentDueDate returns the due date of the last closed statement: the
// first due day after the closing day. ok is false unless the account is
// ACTIVE with a due day.
func (a Account) PaymentDueDate(loc *time.Location) (time.Time, bool) {
	if a.StatementState() != StatementActive || a.DueDate == nil {
		return time.Time{}, false
	}
	c := a.LastStatementCalculationDate.In(loc)
	dayAfter := time.Date(c.Year(), c.Month(), c.Day()+1, 0, 0, 0, 0, loc)
	return NextDayOfMonth(*a.DueDate, dayAfter, loc), true
}
