// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for deciding what the monthly
// roll-over does with a card. Each statement state has its own checker.
package services

import (
	"fmt"
	"time"

	"cardcycle/internal/core"
)

type CycleAction int

const (
	// ActionSkip leaves the card untouched.
	ActionSkip CycleAction = iota
	// ActionBaseline records the first calculation date without a balance.
	ActionBaseline
	// ActionClose computes and stores the balance of the cycle ending yesterday.
	ActionClose
)

const (
	ReasonNotConfigured     = "statement not configured"
	ReasonTransitional      = "transitional cycle"
	ReasonAlreadyCalculated = "already calculated"
	ReasonNotStatementDay   = "not statement day"
)

type CycleDecision struct {
	Action CycleAction
	Reason string
}

// CycleChecker is the strategy interface for one statement state.
type CycleChecker interface {
	// Decide returns what to do with acc at now; day and month boundaries are
	// taken in loc.
	Decide(acc core.Account, now time.Time, loc *time.Location) CycleDecision
}

// UnconfiguredChecker never touches a card without statement tracking.
type UnconfiguredChecker struct{}

func (UnconfiguredChecker) Decide(core.Account, time.Time, *time.Location) CycleDecision {
	return CycleDecision{Action: ActionSkip, Reason: ReasonNotConfigured}
}

// TransitionalChecker establishes the baseline on the first statement day
// seen after configuration. The partial cycle before it is never billed.
type TransitionalChecker struct{}

func (TransitionalChecker) Decide(acc core.Account, now time.Time, loc *time.Location) CycleDecision {
	if !core.IsStatementDay(*acc.StatementDate, now.In(loc)) {
		return CycleDecision{Action: ActionSkip, Reason: ReasonNotStatementDay}
	}
	return CycleDecision{Action: ActionBaseline, Reason: ReasonTransitional}
}

// ActiveChecker closes at most one cycle per calendar month.
type ActiveChecker struct{}

func (ActiveChecker) Decide(acc core.Account, now time.Time, loc *time.Location) CycleDecision {
	// Already closed this month?
	if core.SameMonth(*acc.LastStatementCalculationDate, now, loc) {
		return CycleDecision{Action: ActionSkip, Reason: ReasonAlreadyCalculated}
	}
	if !core.IsStatementDay(*acc.StatementDate, now.In(loc)) {
		return CycleDecision{Action: ActionSkip, Reason: ReasonNotStatementDay}
	}
	return CycleDecision{Action: ActionClose}
}

var cycleStrategies = map[core.StatementState]CycleChecker{
	core.StatementUnconfigured: UnconfiguredChecker{},
	core.StatementTransitional: TransitionalChecker{},
	core.StatementActive:       ActiveChecker{},
}

// GetCycleChecker returns the checker for a statement state.
func GetCycleChecker(state core.StatementState) (CycleChecker, error) {
	checker, ok := cycleStrategies[state]
	if !ok {
		return nil, fmt.Errorf("unknown statement state: %s", state)
	}
	return checker, nil
}

// DecideCycle picks the checker for acc's state and applies it.
func DecideCycle(acc core.Account, now time.Time, loc *time.Location) (CycleDecision, error) {
	checker, err := GetCycleChecker(acc.StatementState())
	if err != nil {
		return CycleDecision{}, err
	}
	return checker.Decide(acc, now, loc), nil
}
