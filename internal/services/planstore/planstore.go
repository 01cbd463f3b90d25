// Package planstore keeps each user's planning records and clip history as
// JSON documents in the data directory.
package planstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"moneyclip/internal/models"
	"moneyclip/internal/services/storage"
)

const (
	usersDir     = "users"
	planFile     = "plan.json"
	historyFile  = "history.json"
	historyLimit = 400 // snapshots kept per user
)

var (
	// ErrNotFound is returned when a record id does not exist
	ErrNotFound = errors.New("record not found")
	// ErrNoPrimary is returned when no account is marked primary
	ErrNoPrimary = errors.New("no primary account")
	// ErrInvalidUser is returned for user ids that cannot name a directory
	ErrInvalidUser = errors.New("invalid user id")
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Plan is the document holding one user's planning records
type Plan struct {
	Accounts  []models.Account          `json:"accounts"`
	Expenses  []models.PlannedExpense   `json:"expenses"`
	Income    []models.PlannedIncome    `json:"income"`
	Paychecks []models.PaycheckSchedule `json:"paycheck_schedules"`
}

// ExpenseFilter narrows ListExpenses. Zero dates are open ends.
type ExpenseFilter struct {
	From        models.Date
	Until       models.Date
	IncludePaid bool
}

// IncomeFilter narrows ListIncome. Zero dates are open ends.
type IncomeFilter struct {
	From            models.Date
	Until           models.Date
	IncludeReceived bool
}

// Store reads and writes plan and history documents
type Store struct {
	storage *storage.Storage
	log     *logrus.Entry
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates a Store on top of st
func New(st *storage.Storage, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		storage: st,
		log:     log.WithField("component", "planstore"),
		now:     time.Now,
	}
}

// ValidUserID reports whether id is usable as a user id
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

func (s *Store) planPath(userID string) string {
	return s.storage.Path(usersDir, userID, planFile)
}

func (s *Store) historyPath(userID string) string {
	return s.storage.Path(usersDir, userID, historyFile)
}

// UserDir returns the directory holding a user's documents
func (s *Store) UserDir(userID string) (string, error) {
	if !ValidUserID(userID) {
		return "", ErrInvalidUser
	}
	return s.storage.Path(usersDir, userID), nil
}

// UserIDs lists every user with stored documents
func (s *Store) UserIDs(context.Context) ([]string, error) {
	names, err := s.storage.Subdirs(s.storage.Path(usersDir))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ids := names[:0]
	for _, n := range names {
		if ValidUserID(n) {
			ids = append(ids, n)
		}
	}
	return ids, nil
}

// Plan returns a copy of the user's plan; a new user gets an empty one
func (s *Store) Plan(_ context.Context, userID string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadInternal(userID)
}

// loadInternal reads the plan without locking (caller holds mu)
func (s *Store) loadInternal(userID string) (*Plan, error) {
	if !ValidUserID(userID) {
		return nil, ErrInvalidUser
	}
	plan := &Plan{}
	err := s.storage.ReadJSON(s.planPath(userID), plan)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("load plan for %s: %w", userID, err)
	}
	if plan.Accounts == nil {
		plan.Accounts = []models.Account{}
	}
	if plan.Expenses == nil {
		plan.Expenses = []models.PlannedExpense{}
	}
	if plan.Income == nil {
		plan.Income = []models.PlannedIncome{}
	}
	if plan.Paychecks == nil {
		plan.Paychecks = []models.PaycheckSchedule{}
	}
	return plan, nil
}

// saveInternal writes the plan without locking (caller holds mu)
func (s *Store) saveInternal(userID string, plan *Plan) error {
	if err := s.storage.WriteJSON(s.planPath(userID), plan); err != nil {
		return fmt.Errorf("save plan for %s: %w", userID, err)
	}
	return nil
}

// update loads the plan, applies fn and saves the result atomically
func (s *Store) update(userID string, fn func(*Plan) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.loadInternal(userID)
	if err != nil {
		return err
	}
	if err := fn(plan); err != nil {
		return err
	}
	return s.saveInternal(userID, plan)
}

// ReplacePlan overwrites the user's whole plan, assigning missing ids
func (s *Store) ReplacePlan(_ context.Context, userID string, plan *Plan) error {
	return s.update(userID, func(p *Plan) error {
		*p = *plan
		for i := range p.Accounts {
			p.Accounts[i].ID = idOrNew(p.Accounts[i].ID)
		}
		for i := range p.Expenses {
			p.Expenses[i].ID = idOrNew(p.Expenses[i].ID)
		}
		for i := range p.Income {
			p.Income[i].ID = idOrNew(p.Income[i].ID)
		}
		for i := range p.Paychecks {
			p.Paychecks[i].ID = idOrNew(p.Paychecks[i].ID)
		}
		return nil
	})
}

func idOrNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// identified is satisfied by every planning record
type identified interface {
	GetID() string
}

// replace swaps in item for the record sharing its id
func replace[T identified](items []T, item T) ([]T, error) {
	for i := range items {
		if items[i].GetID() == item.GetID() {
			items[i] = item
			return items, nil
		}
	}
	return nil, ErrNotFound
}

// remove drops the record with id
func remove[T identified](items []T, id string) ([]T, error) {
	i := slices.IndexFunc(items, func(item T) bool { return item.GetID() == id })
	if i < 0 {
		return nil, ErrNotFound
	}
	return slices.Delete(items, i, i+1), nil
}

func find[T identified](items []T, id string) (T, error) {
	for _, item := range items {
		if item.GetID() == id {
			return item, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

// primaryBalance returns the primary account's balance, or the sum of all
// accounts when none is primary.
func primaryBalance(accounts []models.Account) models.Money {
	total := decimal.Zero
	for _, a := range accounts {
		if a.IsPrimary {
			return a.CurrentBalance
		}
		total = total.Add(a.CurrentBalance.Decimal)
	}
	return models.NewMoney(total)
}
