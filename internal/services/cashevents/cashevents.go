// Package cashevents turns stored planning records into the dated cash
// events of a horizon.
package cashevents

import (
	"context"
	"iter"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"moneyclip/internal/models"
	"moneyclip/internal/services/classifier"
	"moneyclip/internal/services/recurrence"
)

// DataSource is the read-only view of a user's planning records.
// Implementations filter by paid/received and active flags; dates are
// inclusive on both ends.
type DataSource interface {
	UnpaidExpenses(ctx context.Context, userID string, from, until models.Date) ([]models.PlannedExpense, error)
	UnreceivedIncome(ctx context.Context, userID string, from, until models.Date) ([]models.PlannedIncome, error)
	ActivePaychecks(ctx context.Context, userID string) ([]models.PaycheckSchedule, error)
	CurrentBalance(ctx context.Context, userID string) (models.Money, error)
}

// Aggregation holds the events of one horizon
type Aggregation struct {
	Expenses     []models.CashEvent // Negative amounts, date order
	Income       []models.CashEvent // Positive amounts, date order
	ExpenseTotal models.Money       // Sum of expense magnitudes
	IncomeTotal  models.Money
	Degraded     bool // A source call failed and contributed nothing
}

// Aggregator expands planning records into cash events
type Aggregator struct {
	src DataSource
	log *logrus.Entry
}

// NewAggregator creates an Aggregator reading from src
func NewAggregator(src DataSource, log *logrus.Entry) *Aggregator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Aggregator{src: src, log: log.WithField("component", "cashevents")}
}

// Aggregate collects every expense, income and paycheck occurrence in
// [from, until]. It never fails: a source error is logged and leaves that
// source out, marking the result degraded.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, from, until models.Date) *Aggregation {
	agg := &Aggregation{}
	log := a.log.WithFields(logrus.Fields{"user": userID, "from": from.String(), "until": until.String()})

	expenses, err := a.src.UnpaidExpenses(ctx, userID, from, until)
	if err != nil {
		log.WithError(err).Warn("could not load planned expenses")
		agg.Degraded = true
	}
	for _, e := range expenses {
		kind := models.EventPlanned
		freq := models.Frequency("")
		if e.Recurs() {
			kind, freq = models.EventRecurring, e.RecurrenceFrequency
		}
		for d := range occurrences(e.DueDate, freq, from, until) {
			agg.Expenses = append(agg.Expenses, models.CashEvent{
				Amount:   models.Money{Decimal: e.Amount.Neg()},
				Date:     d,
				Label:    e.Name,
				Category: e.Category,
				Kind:     kind,
				SourceID: e.ID,
			})
		}
	}

	income, err := a.src.UnreceivedIncome(ctx, userID, from, until)
	if err != nil {
		log.WithError(err).Warn("could not load planned income")
		agg.Degraded = true
	}
	for _, i := range income {
		kind := models.EventPlanned
		freq := models.Frequency("")
		if i.Recurs() {
			kind, freq = models.EventRecurring, i.RecurrenceFrequency
		}
		for d := range occurrences(i.ExpectedDate, freq, from, until) {
			agg.Income = append(agg.Income, models.CashEvent{
				Amount:   i.Amount,
				Date:     d,
				Label:    i.Name,
				Category: i.Source,
				Kind:     kind,
				SourceID: i.ID,
			})
		}
	}

	paychecks, err := a.src.ActivePaychecks(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("could not load paycheck schedules")
		agg.Degraded = true
	}
	for _, p := range paychecks {
		if !p.IsActive {
			continue
		}
		for d := range recurrence.Expand(p.NextDate, p.Frequency, from, until) {
			agg.Income = append(agg.Income, models.CashEvent{
				Amount:   p.Amount,
				Date:     d,
				Label:    p.Name,
				Kind:     models.EventPaycheck,
				SourceID: p.ID,
			})
		}
	}

	sortByDate(agg.Expenses)
	sortByDate(agg.Income)
	classifier.Categorize(agg.Expenses)
	classifier.Categorize(agg.Income)

	agg.ExpenseTotal = total(agg.Expenses)
	agg.IncomeTotal = total(agg.Income)

	log.WithFields(logrus.Fields{
		"expenses": len(agg.Expenses),
		"income":   len(agg.Income),
		"degraded": agg.Degraded,
	}).Debug("aggregated cash events")
	return agg
}

// NextPayday returns the earliest next_date among active paycheck schedules.
// ok is false when there are none.
func (a *Aggregator) NextPayday(ctx context.Context, userID string) (next models.Date, ok bool, err error) {
	paychecks, err := a.src.ActivePaychecks(ctx, userID)
	if err != nil {
		a.log.WithError(err).WithField("user", userID).Warn("could not load paycheck schedules")
		return models.Date{}, false, err
	}
	for _, p := range paychecks {
		if !p.IsActive || p.NextDate.IsZero() {
			continue
		}
		if !ok || p.NextDate.Before(next) {
			next, ok = p.NextDate, true
		}
	}
	return next, ok, nil
}

// Balance returns the user's current balance, or zero and false when the
// source fails.
func (a *Aggregator) Balance(ctx context.Context, userID string) (models.Money, bool) {
	balance, err := a.src.CurrentBalance(ctx, userID)
	if err != nil {
		a.log.WithError(err).WithField("user", userID).Warn("could not load balance")
		return models.Money{}, false
	}
	return balance, true
}

// occurrences expands a recurring record, or yields a one-off date when it
// falls inside the window.
func occurrences(anchor models.Date, freq models.Frequency, from, until models.Date) iter.Seq[models.Date] {
	if freq != "" {
		return recurrence.Expand(anchor, freq, from, until)
	}
	return func(yield func(models.Date) bool) {
		if !anchor.Before(from) && !anchor.After(until) {
			yield(anchor)
		}
	}
}

func sortByDate(events []models.CashEvent) {
	slices.SortStableFunc(events, func(a, b models.CashEvent) int {
		return a.Date.Compare(b.Date.Time)
	})
}

func total(events []models.CashEvent) models.Money {
	sum := decimal.Zero
	for _, e := range events {
		sum = sum.Add(e.Amount.Abs())
	}
	return models.NewMoney(sum)
}
