// Package clip computes the daily clip: how much can be spent per day until
// the end of a horizon without missing a planned commitment.
package clip

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"moneyclip/internal/models"
	"moneyclip/internal/services/cashevents"
)

// DefaultPaydayGap is the horizon used when no paycheck schedule is active
const DefaultPaydayGap = 7

// Calculator derives a DailyClipResult from a balance and the events of a horizon
type Calculator struct {
	agg *cashevents.Aggregator
	log *logrus.Entry
}

// NewCalculator creates a Calculator backed by agg
func NewCalculator(agg *cashevents.Aggregator, log *logrus.Entry) *Calculator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Calculator{agg: agg, log: log.WithField("component", "clip")}
}

// Calculate computes the daily clip for mode as of today. It never fails;
// data it could not load leaves the result flagged Degraded.
func (c *Calculator) Calculate(ctx context.Context, userID string, balance models.Money, mode models.ClipMode, today models.Date) *models.DailyClipResult {
	end, degraded := c.horizonEnd(ctx, userID, mode, today)
	days := today.DaysUntil(end)

	agg := c.agg.Aggregate(ctx, userID, today, end)

	net := balance.Sub(agg.ExpenseTotal.Decimal).Add(agg.IncomeTotal.Decimal)

	result := &models.DailyClipResult{
		DailyClip:        models.NewMoney(dailyAmount(net, days)),
		CurrentBalance:   models.NewMoney(balance.Decimal),
		DaysRemaining:    days,
		UpcomingExpenses: agg.ExpenseTotal,
		ExpectedIncome:   agg.IncomeTotal,
		NetAvailable:     models.NewMoney(net),
		Mode:             mode,
		CalculationDate:  today,
		PeriodEndDate:    end,
		Breakdown: models.Breakdown{
			Expenses: nonNil(agg.Expenses),
			Income:   nonNil(agg.Income),
		},
		Degraded: degraded || agg.Degraded,
	}

	c.log.WithFields(logrus.Fields{
		"user":       userID,
		"mode":       mode,
		"days":       days,
		"daily_clip": result.DailyClip.String(),
	}).Debug("calculated daily clip")
	return result
}

// horizonEnd picks the last day of the calculation window
func (c *Calculator) horizonEnd(ctx context.Context, userID string, mode models.ClipMode, today models.Date) (models.Date, bool) {
	if mode == models.ModeEndOfMonth {
		return today.EndOfMonth(), false
	}

	next, ok, err := c.agg.NextPayday(ctx, userID)
	if err != nil {
		return today.AddDays(DefaultPaydayGap), true
	}
	if !ok {
		return today.AddDays(DefaultPaydayGap), false
	}
	return next, false
}

// dailyAmount spreads amount over days, or returns it whole when the
// horizon has no days left.
func dailyAmount(amount decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return amount
	}
	return amount.Div(decimal.NewFromInt(int64(days)))
}

func nonNil(events []models.CashEvent) []models.CashEvent {
	if events == nil {
		return []models.CashEvent{}
	}
	return events
}
