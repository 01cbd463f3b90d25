package clip

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"moneyclip/internal/models"
	"moneyclip/internal/services/cashevents"
)

// DefaultTimelineDays is the projection length when a caller does not ask
const DefaultTimelineDays = 30

// ErrInvalidDays is returned for a projection of zero or fewer days
var ErrInvalidDays = errors.New("days must be positive")

// Timeline projects a running balance day by day
type Timeline struct {
	agg     *cashevents.Aggregator
	maxDays int
}

// NewTimeline creates a Timeline; projections longer than maxDays are cut
// to maxDays.
func NewTimeline(agg *cashevents.Aggregator, maxDays int) *Timeline {
	return &Timeline{agg: agg, maxDays: maxDays}
}

// Generate returns one point per day starting at start. Balance on day i is
// balance plus every income minus every expense on days 0 through i.
func (t *Timeline) Generate(ctx context.Context, userID string, balance models.Money, start models.Date, days int) ([]models.DailyCashFlowPoint, error) {
	points, _, err := t.generate(ctx, userID, balance, start, days)
	return points, err
}

func (t *Timeline) generate(ctx context.Context, userID string, balance models.Money, start models.Date, days int) ([]models.DailyCashFlowPoint, bool, error) {
	if days <= 0 {
		return nil, false, ErrInvalidDays
	}
	if t.maxDays > 0 && days > t.maxDays {
		days = t.maxDays
	}

	agg := t.agg.Aggregate(ctx, userID, start, start.AddDays(days-1))
	incomeByDay := bucket(agg.Income)
	expensesByDay := bucket(agg.Expenses)

	running := balance.Decimal
	points := make([]models.DailyCashFlowPoint, 0, days)
	for i := range days {
		day := start.AddDays(i)
		key := day.String()

		income := sum(incomeByDay[key])
		expenses := sum(expensesByDay[key])
		net := income.Sub(expenses)
		running = running.Add(net)

		points = append(points, models.DailyCashFlowPoint{
			Date:         day,
			Balance:      models.NewMoney(running),
			Income:       models.NewMoney(income),
			Expenses:     models.NewMoney(expenses),
			NetChange:    models.NewMoney(net),
			IncomeItems:  nonNil(incomeByDay[key]),
			ExpenseItems: nonNil(expensesByDay[key]),
		})
	}
	return points, agg.Degraded, nil
}

func bucket(events []models.CashEvent) map[string][]models.CashEvent {
	byDay := make(map[string][]models.CashEvent)
	for _, e := range events {
		key := e.Date.String()
		byDay[key] = append(byDay[key], e)
	}
	return byDay
}

// sum adds event magnitudes
func sum(events []models.CashEvent) decimal.Decimal {
	total := decimal.Zero
	for _, e := range events {
		total = total.Add(e.Amount.Abs())
	}
	return total
}
