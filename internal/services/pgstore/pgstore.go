// Package pgstore reads planning records from PostgreSQL and stores clip
// snapshots there.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"moneyclip/internal/models"
)

// Repository provides database operations
type Repository struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open connects to dsn and checks the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewRepository wraps an open database
func NewRepository(db *sql.DB, log *logrus.Entry) *Repository {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Repository{db: db, log: log.WithField("component", "pgstore")}
}

// UnpaidExpenses returns unpaid expenses due inside [from, until]
func (r *Repository) UnpaidExpenses(ctx context.Context, userID string, from, until models.Date) ([]models.PlannedExpense, error) {
	query := `
		SELECT id, name, amount, due_date, COALESCE(category, ''), is_recurring,
		       COALESCE(recurrence_frequency, ''), is_paid, COALESCE(notes, '')
		FROM planned_expenses
		WHERE user_id = $1 AND is_paid = FALSE AND due_date BETWEEN $2 AND $3
		ORDER BY due_date, id`
	rows, err := r.db.QueryContext(ctx, query, userID, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var out []models.PlannedExpense
	for rows.Next() {
		var e models.PlannedExpense
		var amount string
		if err := rows.Scan(&e.ID, &e.Name, &amount, &e.DueDate, &e.Category, &e.IsRecurring,
			&e.RecurrenceFrequency, &e.IsPaid, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if e.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UnreceivedIncome returns unreceived income expected inside [from, until]
func (r *Repository) UnreceivedIncome(ctx context.Context, userID string, from, until models.Date) ([]models.PlannedIncome, error) {
	query := `
		SELECT id, name, amount, expected_date, COALESCE(source, ''), is_recurring,
		       COALESCE(recurrence_frequency, ''), is_received, COALESCE(notes, '')
		FROM planned_income
		WHERE user_id = $1 AND is_received = FALSE AND expected_date BETWEEN $2 AND $3
		ORDER BY expected_date, id`
	rows, err := r.db.QueryContext(ctx, query, userID, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query income: %w", err)
	}
	defer rows.Close()

	var out []models.PlannedIncome
	for rows.Next() {
		var i models.PlannedIncome
		var amount string
		if err := rows.Scan(&i.ID, &i.Name, &amount, &i.ExpectedDate, &i.Source, &i.IsRecurring,
			&i.RecurrenceFrequency, &i.IsReceived, &i.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		if i.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// ActivePaychecks returns the active paycheck schedules
func (r *Repository) ActivePaychecks(ctx context.Context, userID string) ([]models.PaycheckSchedule, error) {
	query := `
		SELECT id, COALESCE(name, ''), amount, frequency, next_date, is_active
		FROM paycheck_schedules
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY next_date, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query paycheck schedules: %w", err)
	}
	defer rows.Close()

	var out []models.PaycheckSchedule
	for rows.Next() {
		var p models.PaycheckSchedule
		var amount string
		if err := rows.Scan(&p.ID, &p.Name, &amount, &p.Frequency, &p.NextDate, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan paycheck schedule: %w", err)
		}
		if p.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CurrentBalance returns the primary account balance, or the sum of all
// accounts when none is primary.
func (r *Repository) CurrentBalance(ctx context.Context, userID string) (models.Money, error) {
	query := `
		SELECT COALESCE(
			(SELECT current_balance FROM accounts WHERE user_id = $1 AND is_primary LIMIT 1),
			(SELECT SUM(current_balance) FROM accounts WHERE user_id = $1),
			0
		)::text`
	var balance string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance); err != nil {
		return models.Money{}, fmt.Errorf("failed to query balance: %w", err)
	}
	return parseAmount(balance)
}

// UserIDs lists users owning at least one account or schedule
func (r *Repository) UserIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT user_id::text FROM accounts
		UNION
		SELECT user_id::text FROM paycheck_schedules
		ORDER BY 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveSnapshot upserts a snapshot keyed by user, date and mode
func (r *Repository) SaveSnapshot(ctx context.Context, snap models.ClipSnapshot) error {
	query := `
		INSERT INTO clip_snapshots (user_id, calculation_date, mode, daily_clip, current_balance,
			net_available, days_remaining, period_end_date, degraded, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, calculation_date, mode) DO UPDATE SET
			daily_clip = EXCLUDED.daily_clip,
			current_balance = EXCLUDED.current_balance,
			net_available = EXCLUDED.net_available,
			days_remaining = EXCLUDED.days_remaining,
			period_end_date = EXCLUDED.period_end_date,
			degraded = EXCLUDED.degraded,
			recorded_at = EXCLUDED.recorded_at`
	_, err := r.db.ExecContext(ctx, query, snap.UserID, snap.CalculationDate, string(snap.Mode),
		snap.DailyClip.String(), snap.CurrentBalance.String(), snap.NetAvailable.String(),
		snap.DaysRemaining, snap.PeriodEndDate, snap.Degraded, snap.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Snapshots returns up to limit snapshots, newest first
func (r *Repository) Snapshots(ctx context.Context, userID string, limit int) ([]models.ClipSnapshot, error) {
	query := `
		SELECT user_id, calculation_date, mode, daily_clip::text, current_balance::text,
		       net_available::text, days_remaining, period_end_date, degraded, recorded_at
		FROM clip_snapshots
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.ClipSnapshot
	for rows.Next() {
		var s models.ClipSnapshot
		var clip, balance, net string
		var recorded pq.NullTime
		if err := rows.Scan(&s.UserID, &s.CalculationDate, &s.Mode, &clip, &balance, &net,
			&s.DaysRemaining, &s.PeriodEndDate, &s.Degraded, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if s.DailyClip, err = parseAmount(clip); err != nil {
			return nil, err
		}
		if s.CurrentBalance, err = parseAmount(balance); err != nil {
			return nil, err
		}
		if s.NetAvailable, err = parseAmount(net); err != nil {
			return nil, err
		}
		s.RecordedAt = recorded.Time.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func parseAmount(s string) (models.Money, error) {
	var m models.Money
	if err := m.UnmarshalJSON([]byte(s)); err != nil {
		return models.Money{}, fmt.Errorf("failed to parse amount: %w", err)
	}
	return models.NewMoney(m.Decimal), nil
}
