package models

import (
	"fmt"
	"strings"
)

// Frequency is how often a recurring item repeats
type Frequency string

const (
	Weekly      Frequency = "weekly"
	BiWeekly    Frequency = "bi-weekly"
	SemiMonthly Frequency = "semi-monthly"
	Monthly     Frequency = "monthly"
	Quarterly   Frequency = "quarterly"
	Yearly      Frequency = "yearly"
)

// Frequencies lists every recurrence frequency the expander understands
var Frequencies = []Frequency{Weekly, BiWeekly, SemiMonthly, Monthly, Quarterly, Yearly}

// PaycheckFrequencies lists the frequencies a paycheck schedule may use
var PaycheckFrequencies = []Frequency{Weekly, BiWeekly, SemiMonthly, Monthly}

// Valid reports whether f is a known recurrence frequency
func (f Frequency) Valid() bool {
	return containsFrequency(Frequencies, f)
}

// ValidPaycheck reports whether f may be used by a paycheck schedule
func (f Frequency) ValidPaycheck() bool {
	return containsFrequency(PaycheckFrequencies, f)
}

// ParseFrequency normalises user input ("Bi-Weekly", "biweekly") to a Frequency
func ParseFrequency(s string) (Frequency, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "biweekly":
		norm = string(BiWeekly)
	case "semimonthly":
		norm = string(SemiMonthly)
	case "annually", "annual":
		norm = string(Yearly)
	}
	f := Frequency(norm)
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency %q", s)
	}
	return f, nil
}

func containsFrequency(list []Frequency, f Frequency) bool {
	for _, candidate := range list {
		if candidate == f {
			return true
		}
	}
	return false
}

// AccountType classifies a bank account
type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
	Credit   AccountType = "credit"
)

// Account is a bank account whose balance feeds the calculator
type Account struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	CurrentBalance Money       `json:"current_balance"`
	AccountType    AccountType `json:"account_type"`
	IsPrimary      bool        `json:"is_primary"` // Main account used for daily spending
	UpdatedAt      Date        `json:"updated_at"`
}

// PlannedExpense is an upcoming bill, one-off or recurring
type PlannedExpense struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Amount              Money     `json:"amount"`
	DueDate             Date      `json:"due_date"`
	Category            string    `json:"category,omitempty"`
	IsRecurring         bool      `json:"is_recurring"`
	RecurrenceFrequency Frequency `json:"recurrence_frequency,omitempty"`
	IsPaid              bool      `json:"is_paid"`
	Notes               string    `json:"notes,omitempty"`
}

// Recurs reports whether the expense should be expanded into occurrences
func (e PlannedExpense) Recurs() bool {
	return e.IsRecurring && e.RecurrenceFrequency != ""
}

// PlannedIncome is expected income other than a regular paycheck
type PlannedIncome struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Amount              Money     `json:"amount"`
	ExpectedDate        Date      `json:"expected_date"`
	Source              string    `json:"source,omitempty"` // salary, freelance, etc.
	IsRecurring         bool      `json:"is_recurring"`
	RecurrenceFrequency Frequency `json:"recurrence_frequency,omitempty"`
	IsReceived          bool      `json:"is_received"`
	Notes               string    `json:"notes,omitempty"`
}

// Recurs reports whether the income should be expanded into occurrences
func (i PlannedIncome) Recurs() bool {
	return i.IsRecurring && i.RecurrenceFrequency != ""
}

// PaycheckSchedule is a perpetually recurring income source. It has no
// received flag: every occurrence inside a horizon counts.
type PaycheckSchedule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    Money     `json:"amount"`
	Frequency Frequency `json:"frequency"`
	NextDate  Date      `json:"next_date"`
	IsActive  bool      `json:"is_active"`
}

// GetID lets the generic store helpers address records by id
func (a Account) GetID() string          { return a.ID }
func (e PlannedExpense) GetID() string   { return e.ID }
func (i PlannedIncome) GetID() string    { return i.ID }
func (p PaycheckSchedule) GetID() string { return p.ID }

// Validate checks the invariants the planning boundary enforces
func (e PlannedExpense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("expense name is required")
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("expense amount must be positive")
	}
	if e.DueDate.IsZero() {
		return fmt.Errorf("due_date is required")
	}
	if e.IsRecurring && e.RecurrenceFrequency != "" && !e.RecurrenceFrequency.Valid() {
		return fmt.Errorf("unknown recurrence_frequency %q", e.RecurrenceFrequency)
	}
	return nil
}

// Validate checks the invariants the planning boundary enforces
func (i PlannedIncome) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("income name is required")
	}
	if !i.Amount.IsPositive() {
		return fmt.Errorf("income amount must be positive")
	}
	if i.ExpectedDate.IsZero() {
		return fmt.Errorf("expected_date is required")
	}
	if i.IsRecurring && i.RecurrenceFrequency != "" && !i.RecurrenceFrequency.Valid() {
		return fmt.Errorf("unknown recurrence_frequency %q", i.RecurrenceFrequency)
	}
	return nil
}

// Validate checks the invariants the planning boundary enforces
func (p PaycheckSchedule) Validate() error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("paycheck amount must be positive")
	}
	if !p.Frequency.ValidPaycheck() {
		return fmt.Errorf("paycheck frequency must be one of weekly, bi-weekly, semi-monthly, monthly")
	}
	if p.NextDate.IsZero() {
		return fmt.Errorf("next_date is required")
	}
	return nil
}

// Validate checks the invariants the planning boundary enforces
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account name is required")
	}
	switch a.AccountType {
	case Checking, Savings, Credit:
	default:
		return fmt.Errorf("unknown account_type %q", a.AccountType)
	}
	return nil
}
