package pgstore

import (
	"context"
	"fmt"
)

// schema creates the tables the repository reads. Planning tables are owned
// by the planning service and are only created when missing.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		account_type TEXT NOT NULL DEFAULT 'checking',
		current_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS planned_expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		due_date DATE NOT NULL,
		category TEXT,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_frequency TEXT,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS planned_income (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		expected_date DATE NOT NULL,
		source TEXT,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_frequency TEXT,
		is_received BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS paycheck_schedules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		frequency TEXT NOT NULL,
		next_date DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS clip_snapshots (
		user_id TEXT NOT NULL,
		calculation_date DATE NOT NULL,
		mode TEXT NOT NULL,
		daily_clip NUMERIC(12,2) NOT NULL,
		current_balance NUMERIC(12,2) NOT NULL,
		net_available NUMERIC(12,2) NOT NULL,
		days_remaining INTEGER NOT NULL,
		period_end_date DATE NOT NULL,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		recorded_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, calculation_date, mode)
	)`,
}

// Migrate creates any missing tables
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	r.log.Info("database schema is up to date")
	return nil
}
