// Package planning serves CRUD endpoints for accounts, planned expenses,
// planned income and paycheck schedules.
package planning

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	apphttp "moneyclip/internal/http"
	"moneyclip/internal/models"
	"moneyclip/internal/services/planstore"
	"moneyclip/internal/services/storage"
)

// Handler serves /planning routes
type Handler struct {
	store *planstore.Store
	log   *logrus.Entry
}

// New creates a Handler over store
func New(store *planstore.Store, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{store: store, log: log.WithField("component", "planning")}
}

// RegisterRoutes registers the planning routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/planning", func(r chi.Router) {
		r.Get("/accounts", h.handleListAccounts)
		r.Post("/accounts", h.handleCreateAccount)
		r.Put("/accounts/primary/balance", h.handlePrimaryBalance)
		r.Put("/accounts/{id}", h.handleUpdateAccount)
		r.Put("/accounts/{id}/balance", h.handleAccountBalance)
		r.Delete("/accounts/{id}", h.handleDeleteAccount)

		r.Get("/expenses", h.handleListExpenses)
		r.Post("/expenses", h.handleCreateExpense)
		r.Put("/expenses/{id}", h.handleUpdateExpense)
		r.Delete("/expenses/{id}", h.handleDeleteExpense)

		r.Get("/income", h.handleListIncome)
		r.Post("/income", h.handleCreateIncome)
		r.Put("/income/{id}", h.handleUpdateIncome)
		r.Delete("/income/{id}", h.handleDeleteIncome)

		r.Get("/paycheck-schedule", h.handleListPaychecks)
		r.Post("/paycheck-schedule", h.handleCreatePaycheck)
		r.Put("/paycheck-schedule/{id}", h.handleUpdatePaycheck)
		r.Delete("/paycheck-schedule/{id}", h.handleDeletePaycheck)
	})
}

// balanceRequest is the body of the balance endpoints
type balanceRequest struct {
	CurrentBalance *models.Money `json:"current_balance"`
}

// Accounts

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	accounts, err := h.store.Accounts(r.Context(), userID)
	if err != nil {
		h.fail(w, "Failed to get accounts", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	a := models.Account{AccountType: models.Checking}
	if !h.decode(w, r, &a) {
		return
	}
	a.ID = ""
	if !h.valid(w, a.Validate()) {
		return
	}
	saved, err := h.store.SaveAccount(r.Context(), userID, a)
	if err != nil {
		h.fail(w, "Failed to create account", err)
		return
	}
	apphttp.JSON(w, http.StatusCreated, map[string]any{
		"message": "Account created successfully",
		"account": saved,
	})
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	accounts, err := h.store.Accounts(r.Context(), userID)
	if err != nil {
		h.fail(w, "Failed to update account", err)
		return
	}
	var a models.Account
	found := false
	for _, candidate := range accounts {
		if candidate.ID == id {
			a, found = candidate, true
			break
		}
	}
	if !found {
		apphttp.ErrorResponse(w, h.log, "Account not found", http.StatusNotFound)
		return
	}

	wasPrimary := a.IsPrimary
	if !h.decode(w, r, &a) {
		return
	}
	// primary can only move by marking another account
	a.ID, a.IsPrimary = id, a.IsPrimary || wasPrimary
	if !h.valid(w, a.Validate()) {
		return
	}
	saved, err := h.store.SaveAccount(r.Context(), userID, a)
	if err != nil {
		h.fail(w, "Failed to update account", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"message": "Account updated successfully",
		"account": saved,
	})
}

func (h *Handler) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	balance, ok := h.balance(w, r)
	if !ok {
		return
	}
	saved, err := h.store.SetBalance(r.Context(), userID, chi.URLParam(r, "id"), balance)
	if err != nil {
		h.fail(w, "Failed to update account balance", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"message": "Account balance updated successfully",
		"account": saved,
	})
}

func (h *Handler) handlePrimaryBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	balance, ok := h.balance(w, r)
	if !ok {
		return
	}
	saved, err := h.store.SetPrimaryBalance(r.Context(), userID, balance)
	if err != nil {
		h.fail(w, "Failed to update primary account balance", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"message": "Primary account balance updated successfully",
		"account": saved,
	})
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteAccount(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete account", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"message": "Account deleted successfully"})
}

// Expenses

func (h *Handler) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, until, ok := h.dateRange(w, q.Get("start_date"), q.Get("end_date"))
	if !ok {
		return
	}
	expenses, err := h.store.ListExpenses(r.Context(), userID, planstore.ExpenseFilter{
		From:        from,
		Until:       until,
		IncludePaid: apphttp.ParseBool(q.Get("include_paid")),
	})
	if err != nil {
		h.fail(w, "Failed to get expenses", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (h *Handler) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var e models.PlannedExpense
	if !h.decode(w, r, &e) {
		return
	}
	e.ID = ""
	if !h.valid(w, e.Validate()) {
		return
	}
	saved, err := h.store.SaveExpense(r.Context(), userID, e)
	if err != nil {
		h.fail(w, "Failed to create expense", err)
		return
	}
	apphttp.JSON(w, http.StatusCreated, map[string]any{
		"message": "Expense created successfully",
		"expense": saved,
	})
}

func (h *Handler) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	e, err := h.store.Expense(r.Context(), userID, id)
	if err != nil {
		h.fail(w, "Failed to update expense", err)
		return
	}
	if !h.decode(w, r, &e) {
		return
	}
	e.ID = id
	if !h.valid(w, e.Validate()) {
		return
	}
	saved, err := h.store.SaveExpense(r.Context(), userID, e)
	if err != nil {
		h.fail(w, "Failed to update expense", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"message": "Expense updated successfully",
		"expense": saved,
	})
}

func (h *Handler) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteExpense(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete expense", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"message": "Expense deleted successfully"})
}

// Income

func (h *Handler) handleListIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, until, ok := h.dateRange(w, q.Get("start_date"), q.Get("end_date"))
	if !ok {
		return
	}
	income, err := h.store.ListIncome(r.Context(), userID, planstore.IncomeFilter{
		From:            from,
		Until:           until,
		IncludeReceived: apphttp.ParseBool(q.Get("include_received")),
	})
	if err != nil {
		h.fail(w, "Failed to get income", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"income": income})
}

func (h *Handler) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var i models.PlannedIncome
	if !h.decode(w, r, &i) {
		return
	}
	i.ID = ""
	if !h.valid(w, i.Validate()) {
		return
	}
	saved, err := h.store.SaveIncome(r.Context(), userID, i)
	if err != nil {
		h.fail(w, "Failed to create income", err)
		return
	}
	apphttp.JSON(w, http.StatusCreated, map[string]any{
		"message": "Income created successfully",
		"income":  saved,
	})
}

func (h *Handler) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	i, err := h.store.Income(r.Context(), userID, id)
	if err != nil {
		h.fail(w, "Failed to update income", err)
		return
	}
	if !h.decode(w, r, &i) {
		return
	}
	i.ID = id
	if !h.valid(w, i.Validate()) {
		return
	}
	saved, err := h.store.SaveIncome(r.Context(), userID, i)
	if err != nil {
		h.fail(w, "Failed to update income", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"message": "Income updated successfully",
		"income":  saved,
	})
}

func (h *Handler) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteIncome(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete income", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"message": "Income deleted successfully"})
}

// Paycheck schedules

func (h *Handler) handleListPaychecks(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	all, err := h.store.Paychecks(r.Context(), userID)
	if err != nil {
		h.fail(w, "Failed to get paycheck schedule", err)
		return
	}
	includeInactive := apphttp.ParseBool(r.URL.Query().Get("include_inactive"))
	schedules := []models.PaycheckSchedule{}
	for _, p := range all {
		if p.IsActive || includeInactive {
			schedules = append(schedules, p)
		}
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (h *Handler) handleCreatePaycheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	p := models.PaycheckSchedule{Name: "Paycheck", IsActive: true}
	if !h.decode(w, r, &p) {
		return
	}
	p.ID = ""
	if !h.valid(w, p.Validate()) {
		return
	}
	saved, err := h.store.SavePaycheck(r.Context(), userID, p)
	if err != nil {
		h.fail(w, "Failed to create paycheck schedule", err)
		return
	}
	apphttp.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Paycheck schedule created successfully",
		"schedule": saved,
	})
}

func (h *Handler) handleUpdatePaycheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	all, err := h.store.Paychecks(r.Context(), userID)
	if err != nil {
		h.fail(w, "Failed to update paycheck schedule", err)
		return
	}
	var p models.PaycheckSchedule
	found := false
	for _, candidate := range all {
		if candidate.ID == id {
			p, found = candidate, true
			break
		}
	}
	if !found {
		apphttp.ErrorResponse(w, h.log, "Paycheck schedule not found", http.StatusNotFound)
		return
	}
	if !h.decode(w, r, &p) {
		return
	}
	p.ID = id
	if !h.valid(w, p.Validate()) {
		return
	}
	saved, err := h.store.SavePaycheck(r.Context(), userID, p)
	if err != nil {
		h.fail(w, "Failed to update paycheck schedule", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"message":  "Paycheck schedule updated successfully",
		"schedule": saved,
	})
}

func (h *Handler) handleDeletePaycheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.store.DeletePaycheck(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete paycheck schedule", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{"message": "Paycheck schedule deleted successfully"})
}

// Helpers

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := apphttp.UserID(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := apphttp.DecodeJSON(r, v); err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) valid(w http.ResponseWriter, err error) bool {
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) (models.Money, bool) {
	var req balanceRequest
	if !h.decode(w, r, &req) {
		return models.Money{}, false
	}
	if req.CurrentBalance == nil {
		apphttp.ErrorResponse(w, h.log, "current_balance is required", http.StatusBadRequest)
		return models.Money{}, false
	}
	return models.NewMoney(req.CurrentBalance.Decimal), true
}

func (h *Handler) dateRange(w http.ResponseWriter, start, end string) (models.Date, models.Date, bool) {
	from, err := apphttp.ParseDate(start)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return models.Date{}, models.Date{}, false
	}
	until, err := apphttp.ParseDate(end)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return models.Date{}, models.Date{}, false
	}
	return from, until, true
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, planstore.ErrNotFound):
		apphttp.ErrorResponse(w, h.log, "Record not found", http.StatusNotFound)
	case errors.Is(err, planstore.ErrNoPrimary):
		apphttp.ErrorResponse(w, h.log, "No primary account found", http.StatusNotFound)
	case errors.Is(err, planstore.ErrInvalidUser):
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrLocked):
		apphttp.ErrorResponse(w, h.log, "Data is locked", http.StatusServiceUnavailable)
	default:
		h.log.WithError(err).Error(message)
		apphttp.ErrorResponse(w, nil, message+": "+err.Error(), http.StatusInternalServerError)
	}
}
