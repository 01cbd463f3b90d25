package clip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"moneyclip/internal/models"
	"moneyclip/internal/services/cashevents"
)

// SummaryDays is the look-ahead window of Summary: today through
// today+SummaryDays-1 inclusive, seven calendar days.
const SummaryDays = 7

// DefaultHistoryLimit caps History when no limit is given
const DefaultHistoryLimit = 30

var (
	// ErrInvalidAmount is returned for a scenario expense that is not positive
	ErrInvalidAmount = errors.New("expense_amount must be greater than zero")
	// ErrInvalidMode is returned for an unknown clip mode
	ErrInvalidMode = errors.New("mode must be next_paycheck or end_of_month")
	// ErrNoHistory is returned when no snapshot store is configured
	ErrNoHistory = errors.New("snapshot history is not available")
)

// SnapshotStore persists daily clip snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap models.ClipSnapshot) error
	Snapshots(ctx context.Context, userID string, limit int) ([]models.ClipSnapshot, error)
}

// Service is the entry point for daily clip operations
type Service struct {
	agg       *cashevents.Aggregator
	calc      *Calculator
	timeline  *Timeline
	snapshots SnapshotStore
	log       *logrus.Entry
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSnapshots enables Refresh persistence and History
func WithSnapshots(store SnapshotStore) Option {
	return func(s *Service) { s.snapshots = store }
}

// NewService wires a Service over src. maxTimelineDays bounds projections.
func NewService(src cashevents.DataSource, maxTimelineDays int, log *logrus.Entry, opts ...Option) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	agg := cashevents.NewAggregator(src, log)
	s := &Service{
		agg:      agg,
		calc:     NewCalculator(agg, log),
		timeline: NewTimeline(agg, maxTimelineDays),
		log:      log.WithField("component", "clip"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date
func (s *Service) Today() models.Date {
	return models.DateOf(s.now())
}

// GetDailyClip calculates the user's daily clip for mode
func (s *Service) GetDailyClip(ctx context.Context, userID string, mode models.ClipMode) (*models.DailyClipResult, error) {
	if mode == "" {
		mode = models.DefaultMode
	}
	if mode != models.ModeNextPaycheck && mode != models.ModeEndOfMonth {
		return nil, ErrInvalidMode
	}

	balance, ok := s.agg.Balance(ctx, userID)
	result := s.calc.Calculate(ctx, userID, balance, mode, s.Today())
	if !ok {
		result.Degraded = true
	}
	return result, nil
}

// TestScenario evaluates a hypothetical one-off expense against the current
// daily clip. scenarioDate is echoed back and does not move the horizon.
func (s *Service) TestScenario(ctx context.Context, userID string, amount decimal.Decimal, scenarioDate *models.Date, mode models.ClipMode) (*models.ScenarioResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	current, err := s.GetDailyClip(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	result := Evaluate(current, amount)
	result.ScenarioDate = scenarioDate
	return result, nil
}

// GenerateTimeline projects the user's balance for days days from start.
// A zero start means today. degraded is set when any source, the balance
// included, could not be read.
func (s *Service) GenerateTimeline(ctx context.Context, userID string, start models.Date, days int) (points []models.DailyCashFlowPoint, degraded bool, err error) {
	if start.IsZero() {
		start = s.Today()
	}
	balance, ok := s.agg.Balance(ctx, userID)
	points, degraded, err = s.timeline.generate(ctx, userID, balance, start, days)
	if err != nil {
		return nil, false, err
	}
	degraded = degraded || !ok
	if degraded {
		s.log.WithField("user", userID).Warn("timeline built from partial data")
	}
	return points, degraded, nil
}

// Summary returns the daily clip together with the coming week's totals
func (s *Service) Summary(ctx context.Context, userID string) (*models.Summary, error) {
	current, err := s.GetDailyClip(ctx, userID, models.DefaultMode)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	week := s.agg.Aggregate(ctx, userID, today, today.AddDays(SummaryDays-1))
	if week.Degraded {
		current.Degraded = true
	}

	return &models.Summary{
		DailyClip: current,
		NextWeek: models.PeriodOutlook{
			TotalExpenses:    week.ExpenseTotal,
			TotalIncome:      week.IncomeTotal,
			NetChange:        models.NewMoney(week.IncomeTotal.Sub(week.ExpenseTotal.Decimal)),
			ExpenseBreakdown: nonNil(week.Expenses),
			IncomeBreakdown:  nonNil(week.Income),
		},
		UpdatedAt: s.now().UTC(),
	}, nil
}

// Refresh recalculates the daily clip and records a snapshot of it
func (s *Service) Refresh(ctx context.Context, userID string, mode models.ClipMode) (*models.DailyClipResult, error) {
	result, err := s.GetDailyClip(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	if s.snapshots == nil {
		return result, nil
	}
	snap := models.SnapshotOf(userID, result, s.now().UTC())
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return result, nil
}

// History returns up to limit snapshots, newest first
func (s *Service) History(ctx context.Context, userID string, limit int) ([]models.ClipSnapshot, error) {
	if s.snapshots == nil {
		return nil, ErrNoHistory
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	snaps, err := s.snapshots.Snapshots(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	if snaps == nil {
		snaps = []models.ClipSnapshot{}
	}
	return snaps, nil
}
