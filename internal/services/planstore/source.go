package planstore

import (
	"context"

	"moneyclip/internal/models"
)

// UnpaidExpenses implements cashevents.DataSource
func (s *Store) UnpaidExpenses(ctx context.Context, userID string, from, until models.Date) ([]models.PlannedExpense, error) {
	return s.ListExpenses(ctx, userID, ExpenseFilter{From: from, Until: until})
}

// UnreceivedIncome implements cashevents.DataSource
func (s *Store) UnreceivedIncome(ctx context.Context, userID string, from, until models.Date) ([]models.PlannedIncome, error) {
	return s.ListIncome(ctx, userID, IncomeFilter{From: from, Until: until})
}

// ActivePaychecks implements cashevents.DataSource
func (s *Store) ActivePaychecks(ctx context.Context, userID string) ([]models.PaycheckSchedule, error) {
	all, err := s.Paychecks(ctx, userID)
	if err != nil {
		return nil, err
	}
	var active []models.PaycheckSchedule
	for _, p := range all {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// CurrentBalance implements cashevents.DataSource
func (s *Store) CurrentBalance(ctx context.Context, userID string) (models.Money, error) {
	accounts, err := s.Accounts(ctx, userID)
	if err != nil {
		return models.Money{}, err
	}
	return primaryBalance(accounts), nil
}
