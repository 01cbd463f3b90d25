// Package calculation serves the daily clip API.
package calculation

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	apphttp "moneyclip/internal/http"
	"moneyclip/internal/models"
	"moneyclip/internal/services/clip"
)

// Handler serves /calculation routes
type Handler struct {
	svc *clip.Service
	log *logrus.Entry
}

// New creates a Handler over svc
func New(svc *clip.Service, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{svc: svc, log: log.WithField("component", "calculation")}
}

// RegisterRoutes registers the calculation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calculation", func(r chi.Router) {
		r.Get("/daily-clip", h.handleDailyClip)
		r.Post("/scenario", h.handleScenario)
		r.Get("/cash-flow", h.handleCashFlow)
		r.Get("/summary", h.handleSummary)
		r.Post("/refresh", h.handleRefresh)
		r.Get("/history", h.handleHistory)
	})
}

// scenarioRequest is the body of POST /scenario
type scenarioRequest struct {
	ExpenseAmount *models.Money   `json:"expense_amount"`
	ScenarioDate  *models.Date    `json:"scenario_date"`
	Mode          models.ClipMode `json:"mode"`
}

func (h *Handler) handleDailyClip(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	mode := models.ClipMode(r.URL.Query().Get("mode"))
	result, err := h.svc.GetDailyClip(r.Context(), userID, mode)
	if err != nil {
		h.fail(w, "Failed to calculate daily clip", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"daily_clip": result,
	})
}

func (h *Handler) handleScenario(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req scenarioRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ExpenseAmount == nil {
		apphttp.ErrorResponse(w, h.log, "expense_amount is required", http.StatusBadRequest)
		return
	}
	if req.ScenarioDate != nil && req.ScenarioDate.IsZero() {
		req.ScenarioDate = nil
	}

	result, err := h.svc.TestScenario(r.Context(), userID, req.ExpenseAmount.Decimal, req.ScenarioDate, req.Mode)
	if err != nil {
		h.fail(w, "Failed to test scenario", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"scenario": result,
	})
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	days, err := apphttp.ParseInt(q.Get("days"), clip.DefaultTimelineDays)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := apphttp.ParseDate(q.Get("start_date"))
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return
	}
	if start.IsZero() {
		start = h.svc.Today()
	}

	points, degraded, err := h.svc.GenerateTimeline(r.Context(), userID, start, days)
	if err != nil {
		h.fail(w, "Failed to generate cash flow", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"start_date": start,
		"days":       len(points),
		"timeline":   points,
		"degraded":   degraded,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, "Failed to get financial summary", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	mode := models.ClipMode(r.URL.Query().Get("mode"))
	result, err := h.svc.Refresh(r.Context(), userID, mode)
	if err != nil {
		h.fail(w, "Failed to refresh calculations", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Calculations refreshed successfully",
		"daily_clip":   result,
		"refreshed_at": time.Now().UTC(),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	limit, err := apphttp.ParseInt(r.URL.Query().Get("limit"), clip.DefaultHistoryLimit)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return
	}
	history, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "Failed to load history", err)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": history,
	})
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := apphttp.UserID(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// fail maps service errors to a status: argument errors are 400, a missing
// history store is 501, anything else is 500.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, clip.ErrInvalidDays), errors.Is(err, clip.ErrInvalidAmount), errors.Is(err, clip.ErrInvalidMode):
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
	case errors.Is(err, clip.ErrNoHistory):
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusNotImplemented)
	default:
		h.log.WithError(err).Error(message)
		apphttp.ErrorResponse(w, nil, message+": "+err.Error(), http.StatusInternalServerError)
	}
}
