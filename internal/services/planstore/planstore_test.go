package planstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"moneyclip/internal/models"
	"moneyclip/internal/services/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := storage.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	s := New(st, nil)
	s.now = func() time.Time { return time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC) }
	return s
}

func money(s string) models.Money { return models.MoneyFromString(s) }
func date(s string) models.Date   { return models.MustParseDate(s) }

func TestEmptyPlan(t *testing.T) {
	s := newTestStore(t)
	plan, err := s.Plan(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Accounts == nil || plan.Expenses == nil || plan.Income == nil || plan.Paychecks == nil {
		t.Errorf("slices should be initialized: %+v", plan)
	}

	balance, err := s.CurrentBalance(context.Background(), "alice")
	if err != nil || !balance.IsZero() {
		t.Errorf("balance = %s, %v", balance, err)
	}
}

func TestInvalidUserID(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", "../etc", "a/b", "with space"} {
		if _, err := s.Plan(context.Background(), id); !errors.Is(err, ErrInvalidUser) {
			t.Errorf("Plan(%q): expected ErrInvalidUser, got %v", id, err)
		}
	}
}

func TestAccountsAndBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	checking, err := s.SaveAccount(ctx, "alice", models.Account{Name: "Checking", AccountType: models.Checking, CurrentBalance: money("1200.50")})
	if err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}
	if checking.ID == "" || !checking.IsPrimary {
		t.Errorf("first account should get an id and be primary: %+v", checking)
	}
	if checking.UpdatedAt.String() != "2025-06-20" {
		t.Errorf("updated_at = %s", checking.UpdatedAt)
	}

	if _, err := s.SaveAccount(ctx, "alice", models.Account{Name: "Savings", AccountType: models.Savings, CurrentBalance: money("5000")}); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	balance, _ := s.CurrentBalance(ctx, "alice")
	if balance.String() != "1200.50" {
		t.Errorf("primary balance = %s, want 1200.50", balance)
	}

	if _, err := s.SetPrimaryBalance(ctx, "alice", money("999.99")); err != nil {
		t.Fatalf("SetPrimaryBalance: %v", err)
	}
	balance, _ = s.CurrentBalance(ctx, "alice")
	if balance.String() != "999.99" {
		t.Errorf("primary balance = %s, want 999.99", balance)
	}

	// Without a primary account the balances are summed
	checking.IsPrimary = false
	checking.CurrentBalance = money("999.99")
	if _, err := s.SaveAccount(ctx, "alice", checking); err != nil {
		t.Fatalf("SaveAccount update: %v", err)
	}
	balance, _ = s.CurrentBalance(ctx, "alice")
	if balance.String() != "5999.99" {
		t.Errorf("summed balance = %s, want 5999.99", balance)
	}
	if _, err := s.SetPrimaryBalance(ctx, "alice", money("1")); !errors.Is(err, ErrNoPrimary) {
		t.Errorf("expected ErrNoPrimary, got %v", err)
	}

	if _, err := s.SetBalance(ctx, "alice", "missing", money("1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteAccount(ctx, "alice", checking.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	accounts, _ := s.Accounts(ctx, "alice")
	if len(accounts) != 1 || accounts[0].Name != "Savings" {
		t.Errorf("accounts after delete: %+v", accounts)
	}
}

func TestExpensesAsDataSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fixtures := []models.PlannedExpense{
		{Name: "Rent", Amount: money("1200"), DueDate: date("2025-07-01")},
		{Name: "Phone", Amount: money("70"), DueDate: date("2025-06-22")},
		{Name: "Paid", Amount: money("10"), DueDate: date("2025-06-23"), IsPaid: true},
		{Name: "Old", Amount: money("10"), DueDate: date("2025-05-01")},
	}
	for _, e := range fixtures {
		if _, err := s.SaveExpense(ctx, "alice", e); err != nil {
			t.Fatalf("SaveExpense(%s): %v", e.Name, err)
		}
	}

	got, err := s.UnpaidExpenses(ctx, "alice", date("2025-06-20"), date("2025-07-01"))
	if err != nil {
		t.Fatalf("UnpaidExpenses: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Phone" || got[1].Name != "Rent" {
		t.Errorf("got %+v", got)
	}

	all, _ := s.ListExpenses(ctx, "alice", ExpenseFilter{IncludePaid: true})
	if len(all) != 4 || all[0].Name != "Old" {
		t.Errorf("all expenses: %+v", all)
	}
}

func TestSaveExpenseValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bad := []models.PlannedExpense{
		{Name: "", Amount: money("1"), DueDate: date("2025-06-20")},
		{Name: "Zero", Amount: money("0"), DueDate: date("2025-06-20")},
		{Name: "No date", Amount: money("1")},
		{Name: "Odd", Amount: money("1"), DueDate: date("2025-06-20"), IsRecurring: true, RecurrenceFrequency: "hourly"},
	}
	for _, e := range bad {
		if _, err := s.SaveExpense(ctx, "alice", e); err == nil {
			t.Errorf("expected validation error for %+v", e)
		}
	}

	if _, err := s.SaveExpense(ctx, "alice", models.PlannedExpense{ID: "nope", Name: "x", Amount: money("1"), DueDate: date("2025-06-20")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("updating unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestIncomeAndPaychecks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inc, err := s.SaveIncome(ctx, "alice", models.PlannedIncome{Name: "Refund", Amount: money("200"), ExpectedDate: date("2025-06-25")})
	if err != nil {
		t.Fatalf("SaveIncome: %v", err)
	}
	inc.IsReceived = true
	if _, err := s.SaveIncome(ctx, "alice", inc); err != nil {
		t.Fatalf("SaveIncome update: %v", err)
	}
	got, _ := s.UnreceivedIncome(ctx, "alice", date("2025-06-01"), date("2025-06-30"))
	if len(got) != 0 {
		t.Errorf("received income should be filtered out: %+v", got)
	}

	active, err := s.SavePaycheck(ctx, "alice", models.PaycheckSchedule{Name: "ACME", Amount: money("2000"), Frequency: models.BiWeekly, NextDate: date("2025-06-27"), IsActive: true})
	if err != nil {
		t.Fatalf("SavePaycheck: %v", err)
	}
	if _, err := s.SavePaycheck(ctx, "alice", models.PaycheckSchedule{Name: "Old", Amount: money("10"), Frequency: models.Weekly, NextDate: date("2025-06-27")}); err != nil {
		t.Fatalf("SavePaycheck: %v", err)
	}
	if _, err := s.SavePaycheck(ctx, "alice", models.PaycheckSchedule{Name: "Bad", Amount: money("10"), Frequency: models.Quarterly, NextDate: date("2025-06-27")}); err == nil {
		t.Error("quarterly paychecks should be rejected")
	}

	paychecks, _ := s.ActivePaychecks(ctx, "alice")
	if len(paychecks) != 1 || paychecks[0].ID != active.ID {
		t.Errorf("active paychecks: %+v", paychecks)
	}

	if err := s.DeletePaycheck(ctx, "alice", active.ID); err != nil {
		t.Fatalf("DeletePaycheck: %v", err)
	}
	if err := s.DeletePaycheck(ctx, "alice", active.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, clip := range []string{"10.00", "20.00", "30.00"} {
		snap := models.ClipSnapshot{
			UserID:          "alice",
			CalculationDate: date("2025-06-20").AddDays(i),
			Mode:            models.ModeNextPaycheck,
			DailyClip:       money(clip),
		}
		if err := s.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}
	// Same date and mode replaces the earlier entry
	if err := s.SaveSnapshot(ctx, models.ClipSnapshot{UserID: "alice", CalculationDate: date("2025-06-22"), Mode: models.ModeNextPaycheck, DailyClip: money("35.00")}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snaps, err := s.Snapshots(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 2 || snaps[0].DailyClip.String() != "35.00" || snaps[1].DailyClip.String() != "20.00" {
		t.Errorf("snapshots: %+v", snaps)
	}

	users, err := s.UserIDs(ctx)
	if err != nil || len(users) != 1 || users[0] != "alice" {
		t.Errorf("UserIDs = %v, %v", users, err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SaveExpense(ctx, "alice", models.PlannedExpense{Name: "Coffee", Amount: money("4.50"), DueDate: date("2025-06-21")})
			if err != nil {
				t.Errorf("SaveExpense: %v", err)
			}
		}()
	}
	wg.Wait()

	all, _ := s.ListExpenses(ctx, "alice", ExpenseFilter{IncludePaid: true})
	if len(all) != 20 {
		t.Errorf("got %d expenses after concurrent saves, want 20", len(all))
	}
}

func TestEncryptedStore(t *testing.T) {
	dir := t.TempDir()
	st, _ := storage.New(dir, nil)
	if err := st.EnableEncryption("correct horse"); err != nil {
		t.Fatalf("EnableEncryption: %v", err)
	}
	s := New(st, nil)
	ctx := context.Background()
	if _, err := s.SaveExpense(ctx, "alice", models.PlannedExpense{Name: "Rent", Amount: money("1200"), DueDate: date("2025-07-01")}); err != nil {
		t.Fatalf("SaveExpense: %v", err)
	}

	raw, err := os.ReadFile(s.planPath("alice"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw[:18]) != "age-encryption.org" {
		t.Error("plan should be encrypted on disk")
	}

	st.Lock()
	if _, err := s.Plan(ctx, "alice"); !errors.Is(err, storage.ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
}
