package testutil

import (
	"context"
	"sync"

	"moneyclip/internal/models"
)

// MemorySource is an in-memory planning data source for tests. Setting one
// of the *Err fields makes the matching call fail.
type MemorySource struct {
	Balance   models.Money
	Expenses  []models.PlannedExpense
	Income    []models.PlannedIncome
	Paychecks []models.PaycheckSchedule

	BalanceErr   error
	ExpensesErr  error
	IncomeErr    error
	PaychecksErr error

	mu    sync.Mutex
	Calls map[string]int
}

func (m *MemorySource) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[name]++
}

// UnpaidExpenses returns unpaid expenses due inside [from, until]
func (m *MemorySource) UnpaidExpenses(_ context.Context, _ string, from, until models.Date) ([]models.PlannedExpense, error) {
	m.record("UnpaidExpenses")
	if m.ExpensesErr != nil {
		return nil, m.ExpensesErr
	}
	var out []models.PlannedExpense
	for _, e := range m.Expenses {
		if !e.IsPaid && inRange(e.DueDate, from, until) {
			out = append(out, e)
		}
	}
	return out, nil
}

// UnreceivedIncome returns unreceived income expected inside [from, until]
func (m *MemorySource) UnreceivedIncome(_ context.Context, _ string, from, until models.Date) ([]models.PlannedIncome, error) {
	m.record("UnreceivedIncome")
	if m.IncomeErr != nil {
		return nil, m.IncomeErr
	}
	var out []models.PlannedIncome
	for _, i := range m.Income {
		if !i.IsReceived && inRange(i.ExpectedDate, from, until) {
			out = append(out, i)
		}
	}
	return out, nil
}

// ActivePaychecks returns the active paycheck schedules
func (m *MemorySource) ActivePaychecks(context.Context, string) ([]models.PaycheckSchedule, error) {
	m.record("ActivePaychecks")
	if m.PaychecksErr != nil {
		return nil, m.PaychecksErr
	}
	var out []models.PaycheckSchedule
	for _, p := range m.Paychecks {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// CurrentBalance returns Balance
func (m *MemorySource) CurrentBalance(context.Context, string) (models.Money, error) {
	m.record("CurrentBalance")
	if m.BalanceErr != nil {
		return models.Money{}, m.BalanceErr
	}
	return m.Balance, nil
}

func inRange(d, from, until models.Date) bool {
	return !d.Before(from) && !d.After(until)
}

// Money parses a fixture amount
func Money(s string) models.Money {
	return models.MoneyFromString(s)
}

// Date parses a fixture date
func Date(s string) models.Date {
	return models.MustParseDate(s)
}
