package planstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"moneyclip/internal/models"
)

// Accounts lists the user's accounts
func (s *Store) Accounts(ctx context.Context, userID string) ([]models.Account, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return plan.Accounts, nil
}

// SaveAccount creates the account when its id is empty and updates it
// otherwise. Marking an account primary clears the flag on the others.
func (s *Store) SaveAccount(_ context.Context, userID string, a models.Account) (models.Account, error) {
	if err := a.Validate(); err != nil {
		return models.Account{}, err
	}
	a.UpdatedAt = models.DateOf(s.now())
	err := s.update(userID, func(p *Plan) error {
		if len(p.Accounts) == 0 {
			a.IsPrimary = true
		}
		if a.IsPrimary {
			for i := range p.Accounts {
				p.Accounts[i].IsPrimary = false
			}
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
			p.Accounts = append(p.Accounts, a)
			return nil
		}
		var err error
		p.Accounts, err = replace(p.Accounts, a)
		return err
	})
	return a, err
}

// SetBalance updates one account's balance
func (s *Store) SetBalance(_ context.Context, userID, accountID string, balance models.Money) (models.Account, error) {
	var updated models.Account
	err := s.update(userID, func(p *Plan) error {
		i := slices.IndexFunc(p.Accounts, func(a models.Account) bool { return a.ID == accountID })
		if i < 0 {
			return ErrNotFound
		}
		p.Accounts[i].CurrentBalance = balance
		p.Accounts[i].UpdatedAt = models.DateOf(s.now())
		updated = p.Accounts[i]
		return nil
	})
	return updated, err
}

// SetPrimaryBalance updates the balance of the primary account
func (s *Store) SetPrimaryBalance(_ context.Context, userID string, balance models.Money) (models.Account, error) {
	var updated models.Account
	err := s.update(userID, func(p *Plan) error {
		i := slices.IndexFunc(p.Accounts, func(a models.Account) bool { return a.IsPrimary })
		if i < 0 {
			return ErrNoPrimary
		}
		p.Accounts[i].CurrentBalance = balance
		p.Accounts[i].UpdatedAt = models.DateOf(s.now())
		updated = p.Accounts[i]
		return nil
	})
	return updated, err
}

// DeleteAccount removes an account
func (s *Store) DeleteAccount(_ context.Context, userID, id string) error {
	return s.update(userID, func(p *Plan) error {
		var err error
		p.Accounts, err = remove(p.Accounts, id)
		return err
	})
}

// ListExpenses returns the user's expenses matching f, by due date
func (s *Store) ListExpenses(ctx context.Context, userID string, f ExpenseFilter) ([]models.PlannedExpense, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.PlannedExpense{}
	for _, e := range plan.Expenses {
		if (f.IncludePaid || !e.IsPaid) && within(e.DueDate, f.From, f.Until) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b models.PlannedExpense) int { return a.DueDate.Compare(b.DueDate.Time) })
	return out, nil
}

// Expense returns one expense
func (s *Store) Expense(ctx context.Context, userID, id string) (models.PlannedExpense, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return models.PlannedExpense{}, err
	}
	return find(plan.Expenses, id)
}

// SaveExpense creates or updates an expense
func (s *Store) SaveExpense(_ context.Context, userID string, e models.PlannedExpense) (models.PlannedExpense, error) {
	if err := e.Validate(); err != nil {
		return models.PlannedExpense{}, err
	}
	err := s.update(userID, func(p *Plan) error {
		if e.ID == "" {
			e.ID = uuid.NewString()
			p.Expenses = append(p.Expenses, e)
			return nil
		}
		var err error
		p.Expenses, err = replace(p.Expenses, e)
		return err
	})
	return e, err
}

// DeleteExpense removes an expense
func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	return s.update(userID, func(p *Plan) error {
		var err error
		p.Expenses, err = remove(p.Expenses, id)
		return err
	})
}

// ListIncome returns the user's planned income matching f, by expected date
func (s *Store) ListIncome(ctx context.Context, userID string, f IncomeFilter) ([]models.PlannedIncome, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.PlannedIncome{}
	for _, i := range plan.Income {
		if (f.IncludeReceived || !i.IsReceived) && within(i.ExpectedDate, f.From, f.Until) {
			out = append(out, i)
		}
	}
	slices.SortStableFunc(out, func(a, b models.PlannedIncome) int { return a.ExpectedDate.Compare(b.ExpectedDate.Time) })
	return out, nil
}

// Income returns one planned income
func (s *Store) Income(ctx context.Context, userID, id string) (models.PlannedIncome, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return models.PlannedIncome{}, err
	}
	return find(plan.Income, id)
}

// SaveIncome creates or updates a planned income
func (s *Store) SaveIncome(_ context.Context, userID string, i models.PlannedIncome) (models.PlannedIncome, error) {
	if err := i.Validate(); err != nil {
		return models.PlannedIncome{}, err
	}
	err := s.update(userID, func(p *Plan) error {
		if i.ID == "" {
			i.ID = uuid.NewString()
			p.Income = append(p.Income, i)
			return nil
		}
		var err error
		p.Income, err = replace(p.Income, i)
		return err
	})
	return i, err
}

// DeleteIncome removes a planned income
func (s *Store) DeleteIncome(_ context.Context, userID, id string) error {
	return s.update(userID, func(p *Plan) error {
		var err error
		p.Income, err = remove(p.Income, id)
		return err
	})
}

// Paychecks lists every paycheck schedule, active or not
func (s *Store) Paychecks(ctx context.Context, userID string) ([]models.PaycheckSchedule, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return plan.Paychecks, nil
}

// SavePaycheck creates or updates a paycheck schedule
func (s *Store) SavePaycheck(_ context.Context, userID string, p models.PaycheckSchedule) (models.PaycheckSchedule, error) {
	if err := p.Validate(); err != nil {
		return models.PaycheckSchedule{}, err
	}
	err := s.update(userID, func(plan *Plan) error {
		if p.ID == "" {
			p.ID = uuid.NewString()
			plan.Paychecks = append(plan.Paychecks, p)
			return nil
		}
		var err error
		plan.Paychecks, err = replace(plan.Paychecks, p)
		return err
	})
	return p, err
}

// DeletePaycheck removes a paycheck schedule
func (s *Store) DeletePaycheck(_ context.Context, userID, id string) error {
	return s.update(userID, func(p *Plan) error {
		var err error
		p.Paychecks, err = remove(p.Paychecks, id)
		return err
	})
}

// within reports whether d is inside [from, until]; zero bounds are open
func within(d, from, until models.Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !until.IsZero() && d.After(until) {
		return false
	}
	return true
}
