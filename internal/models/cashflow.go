package models

import (
	"fmt"
	"time"
)

// EventKind records where a cash event came from
type EventKind string

const (
	EventPlanned   EventKind = "planned"   // One-off planned expense or income
	EventRecurring EventKind = "recurring" // Occurrence of a recurring planned item
	EventPaycheck  EventKind = "paycheck"  // Occurrence of a paycheck schedule
)

// CashEvent is a dated cash movement derived for a single calculation.
// Amount is signed: positive for income, negative for expenses.
type CashEvent struct {
	Amount   Money     `json:"amount"`
	Date     Date      `json:"date"`
	Label    string    `json:"name"`
	Category string    `json:"category,omitempty"`
	Kind     EventKind `json:"type"`
	SourceID string    `json:"source_id,omitempty"`
}

// IsIncome reports whether the event adds to the balance
func (e CashEvent) IsIncome() bool {
	return e.Amount.IsPositive()
}

// Magnitude returns the unsigned amount
func (e CashEvent) Magnitude() Money {
	return Money{Decimal: e.Amount.Abs()}
}

// ClipMode selects the horizon a daily clip is computed over
type ClipMode string

const (
	ModeNextPaycheck ClipMode = "next_paycheck"
	ModeEndOfMonth   ClipMode = "end_of_month"
)

// DefaultMode is used when a caller does not pick one
const DefaultMode = ModeNextPaycheck

// ParseClipMode validates a mode string, defaulting empty input
func ParseClipMode(s string) (ClipMode, error) {
	switch ClipMode(s) {
	case "":
		return DefaultMode, nil
	case ModeNextPaycheck, ModeEndOfMonth:
		return ClipMode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q: expected next_paycheck or end_of_month", s)
}

// Breakdown itemises the events behind a calculation
type Breakdown struct {
	Expenses []CashEvent `json:"expenses"`
	Income   []CashEvent `json:"income"`
}

// DailyClipResult is the safe daily spending figure and how it was derived
type DailyClipResult struct {
	DailyClip        Money     `json:"daily_clip"`
	CurrentBalance   Money     `json:"current_balance"`
	DaysRemaining    int       `json:"days_remaining"`
	UpcomingExpenses Money     `json:"upcoming_expenses"`
	ExpectedIncome   Money     `json:"expected_income"`
	NetAvailable     Money     `json:"net_available"`
	Mode             ClipMode  `json:"mode"`
	CalculationDate  Date      `json:"calculation_date"`
	PeriodEndDate    Date      `json:"period_end_date"`
	Breakdown        Breakdown `json:"breakdown"`
	Degraded         bool      `json:"degraded,omitempty"` // Some source data could not be loaded
}

// Recommendation is the qualitative verdict of a scenario
type Recommendation string

const (
	ComfortablyAffordable   Recommendation = "comfortably affordable"
	AffordableButTightens   Recommendation = "affordable but tightens budget"
	SlightlyOverBudget      Recommendation = "slightly over budget"
	SignificantBudgetImpact Recommendation = "significant budget impact"
)

// ScenarioResult reports the effect of a hypothetical expense
type ScenarioResult struct {
	CurrentClip     Money          `json:"current_clip"`
	NewClip         Money          `json:"new_clip"`
	Impact          Money          `json:"impact"` // Reduction per day
	ScenarioExpense Money          `json:"scenario_expense"`
	Recommendation  Recommendation `json:"recommendation"`
	DaysAffected    int            `json:"days_affected"`
	ScenarioDate    *Date          `json:"scenario_date,omitempty"` // Echoed back; does not shift the horizon
	Mode            ClipMode       `json:"mode"`
}

// DailyCashFlowPoint is one day of a cash-flow projection
type DailyCashFlowPoint struct {
	Date         Date        `json:"date"`
	Balance      Money       `json:"balance"`
	Income       Money       `json:"income"`
	Expenses     Money       `json:"expenses"`
	NetChange    Money       `json:"net_change"`
	IncomeItems  []CashEvent `json:"income_items"`
	ExpenseItems []CashEvent `json:"expense_items"`
}

// PeriodOutlook totals the events of a short look-ahead window
type PeriodOutlook struct {
	TotalExpenses    Money       `json:"total_expenses"`
	TotalIncome      Money       `json:"total_income"`
	NetChange        Money       `json:"net_change"`
	ExpenseBreakdown []CashEvent `json:"expense_breakdown"`
	IncomeBreakdown  []CashEvent `json:"income_breakdown"`
}

// Summary combines the current daily clip with the coming week
type Summary struct {
	DailyClip *DailyClipResult `json:"daily_clip"`
	NextWeek  PeriodOutlook    `json:"next_7_days"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ClipSnapshot is a persisted daily clip, written by the scheduler or a refresh
type ClipSnapshot struct {
	UserID          string    `json:"user_id"`
	CalculationDate Date      `json:"calculation_date"`
	Mode            ClipMode  `json:"mode"`
	DailyClip       Money     `json:"daily_clip"`
	CurrentBalance  Money     `json:"current_balance"`
	NetAvailable    Money     `json:"net_available"`
	DaysRemaining   int       `json:"days_remaining"`
	PeriodEndDate   Date      `json:"period_end_date"`
	Degraded        bool      `json:"degraded,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// SnapshotOf captures the headline figures of a result
func SnapshotOf(userID string, r *DailyClipResult, recordedAt time.Time) ClipSnapshot {
	return ClipSnapshot{
		UserID:          userID,
		CalculationDate: r.CalculationDate,
		Mode:            r.Mode,
		DailyClip:       r.DailyClip,
		CurrentBalance:  r.CurrentBalance,
		NetAvailable:    r.NetAvailable,
		DaysRemaining:   r.DaysRemaining,
		PeriodEndDate:   r.PeriodEndDate,
		Degraded:        r.Degraded,
		RecordedAt:      recordedAt,
	}
}
