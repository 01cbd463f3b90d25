package clip_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"moneyclip/internal/models"
	"moneyclip/internal/services/cashevents"
	"moneyclip/internal/services/clip"
	"moneyclip/internal/testutil"
)

func timelineSource() *testutil.MemorySource {
	return &testutil.MemorySource{
		Expenses: []models.PlannedExpense{
			{ID: "e1", Name: "Rent", Amount: money("1200.00"), DueDate: date("2025-07-01"),
				IsRecurring: true, RecurrenceFrequency: models.Monthly},
			{ID: "e2", Name: "Streaming", Amount: money("15.99"), DueDate: date("2025-06-22"),
				IsRecurring: true, RecurrenceFrequency: models.Weekly},
			{ID: "e3", Name: "Dentist", Amount: money("80.10"), DueDate: date("2025-06-22")},
		},
		Income: []models.PlannedIncome{
			{ID: "i1", Name: "Refund", Amount: money("42.42"), ExpectedDate: date("2025-06-29")},
		},
		Paychecks: []models.PaycheckSchedule{
			{ID: "p1", Name: "ACME", Amount: money("1850.55"), Frequency: models.BiWeekly, NextDate: date("2025-06-27"), IsActive: true},
		},
	}
}

func TestTimelineBalanceInvariant(t *testing.T) {
	tl := clip.NewTimeline(cashevents.NewAggregator(timelineSource(), nil), 365)
	start := date("2025-06-20")
	balance := money("731.17")

	points, err := tl.Generate(context.Background(), "alice", balance, start, 45)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(points) != 45 {
		t.Fatalf("got %d points, want 45", len(points))
	}

	running := balance.Decimal
	for i, p := range points {
		if !p.Date.Equal(start.AddDays(i)) {
			t.Fatalf("point %d date = %s, want %s", i, p.Date, start.AddDays(i))
		}
		running = running.Add(p.Income.Decimal).Sub(p.Expenses.Decimal)
		if !p.Balance.Equal(running) {
			t.Errorf("point %d balance = %s, want %s", i, p.Balance, running.StringFixed(2))
		}
		if !p.NetChange.Equal(p.Income.Sub(p.Expenses.Decimal)) {
			t.Errorf("point %d net_change = %s", i, p.NetChange)
		}
		if len(p.IncomeItems) == 0 && !p.Income.IsZero() {
			t.Errorf("point %d has income without items", i)
		}
	}

	// 06-22: dentist and first streaming charge
	if got := points[2].Expenses.String(); got != "96.09" || len(points[2].ExpenseItems) != 2 {
		t.Errorf("2025-06-22 expenses = %s with %d items", got, len(points[2].ExpenseItems))
	}
	// 06-27: paycheck
	if got := points[7].Income.String(); got != "1850.55" {
		t.Errorf("2025-06-27 income = %s", got)
	}
}

func TestTimelineSubCentAmountsKeepInvariant(t *testing.T) {
	var coffee models.PlannedExpense
	raw := `{"id":"e1","name":"Coffee","amount":10.005,"due_date":"2025-06-20","is_recurring":true,"recurrence_frequency":"weekly"}`
	if err := json.Unmarshal([]byte(raw), &coffee); err != nil {
		t.Fatalf("decode expense: %v", err)
	}
	if err := coffee.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	src := &testutil.MemorySource{Expenses: []models.PlannedExpense{coffee}}
	tl := clip.NewTimeline(cashevents.NewAggregator(src, nil), 365)
	points, err := tl.Generate(context.Background(), "alice", money("100.00"), date("2025-06-20"), 8)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// compare the figures exactly as they are rendered
	shown := func(m models.Money) decimal.Decimal { return decimal.RequireFromString(m.String()) }
	running := decimal.RequireFromString("100.00")
	for i, p := range points {
		running = running.Add(shown(p.Income)).Sub(shown(p.Expenses))
		if !shown(p.Balance).Equal(running) {
			t.Errorf("point %d balance = %s, want %s", i, p.Balance, running.StringFixed(2))
		}
	}
	if got := points[0].Balance.String(); got != "89.99" {
		t.Errorf("day 0 balance = %s, want 89.99", got)
	}
	if got := points[7].Balance.String(); got != "79.98" {
		t.Errorf("day 7 balance = %s, want 79.98", got)
	}
}

func TestTimelineDays(t *testing.T) {
	tl := clip.NewTimeline(cashevents.NewAggregator(&testutil.MemorySource{}, nil), 30)
	ctx := context.Background()

	for _, days := range []int{0, -3} {
		if _, err := tl.Generate(ctx, "alice", money("10"), date("2025-06-20"), days); !errors.Is(err, clip.ErrInvalidDays) {
			t.Errorf("days=%d: expected ErrInvalidDays, got %v", days, err)
		}
	}

	points, err := tl.Generate(ctx, "alice", money("10"), date("2025-06-20"), 400)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(points) != 30 {
		t.Errorf("expected projection clamped to 30 days, got %d", len(points))
	}
	for _, p := range points {
		if !p.Balance.Equal(decimal.NewFromInt(10)) {
			t.Errorf("balance should stay flat with no events, got %s on %s", p.Balance, p.Date)
			break
		}
	}
}
