package main

import (
	"net/http"
	"testing"
	"time"

	"moneyclip/internal/auth"
	"moneyclip/internal/config"
	"moneyclip/internal/models"
	"moneyclip/internal/testutil"
)

// setupTestServer builds the full router over a fresh file backend
func setupTestServer(t *testing.T, mutate ...func(*config.Config)) *testutil.TestServer {
	t.Helper()

	testutil.SetTestEnv(t)
	cfg := config.Load()
	for _, m := range mutate {
		m(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	if err := SetupDependencies(cfg); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}
	return testutil.NewTestServer(t, SetupRouter())
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	testutil.AssertResponse(t, ts.GET("/api/health")).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(`"status":"ok"`, `"backend":"file"`)
}

func TestVersionEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	testutil.AssertResponse(t, ts.GET("/api/version")).StatusOK().Contains(`"go_version"`)
}

func TestNoSchedulerWhenScheduleEmpty(t *testing.T) {
	setupTestServer(t)
	if deps.scheduler != nil {
		t.Error("scheduler should not be built without a schedule")
	}
}

// TestPlanToClip walks the main flow: record a plan through the planning
// API, then read the daily clip computed from it.
func TestPlanToClip(t *testing.T) {
	ts := setupTestServer(t)
	today := models.DateOf(time.Now())
	end := today.EndOfMonth()
	days := today.DaysUntil(end)

	testutil.AssertResponse(t, ts.POST("/api/planning/accounts", map[string]any{
		"name": "Checking", "current_balance": 1000,
	})).Status(http.StatusCreated)

	var body struct {
		DailyClip models.DailyClipResult `json:"daily_clip"`
	}
	testutil.AssertResponse(t, ts.GETWithQuery("/api/calculation/daily-clip", map[string]string{"mode": "end_of_month"})).
		StatusOK().
		JSON(&body)

	if body.DailyClip.CurrentBalance.String() != "1000.00" {
		t.Errorf("current_balance = %s", body.DailyClip.CurrentBalance)
	}
	if body.DailyClip.DaysRemaining != days || !body.DailyClip.PeriodEndDate.Equal(end) {
		t.Errorf("days=%d end=%s, want %d %s", body.DailyClip.DaysRemaining, body.DailyClip.PeriodEndDate, days, end)
	}

	testutil.AssertResponse(t, ts.Do(http.MethodPost, "/api/calculation/refresh", nil)).StatusOK()
	testutil.AssertResponse(t, ts.GET("/api/calculation/history")).
		StatusOK().
		Contains(`"user_id":"tester"`)

	testutil.AssertResponse(t, ts.GET("/api/backup")).
		StatusOK().
		ContentType("application/zip")
}

func TestAuthRequired(t *testing.T) {
	ts := setupTestServer(t, func(c *config.Config) {
		c.JWTSecret = "test-secret-with-enough-entropy"
	})

	testutil.AssertResponse(t, ts.GET("/api/calculation/daily-clip")).
		Status(http.StatusUnauthorized).
		ErrorMessage("unauthorized")

	// Health stays public
	testutil.AssertResponse(t, ts.GET("/api/health")).StatusOK()

	token, err := auth.New("test-secret-with-enough-entropy", "", nil).IssueToken("carol", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ts.Token = token
	testutil.AssertResponse(t, ts.GET("/api/calculation/daily-clip")).StatusOK()
	testutil.AssertResponse(t, ts.GET("/api/planning/accounts")).StatusOK().Contains(`"accounts":[]`)
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)
	testutil.AssertResponse(t, ts.GET("/api/nope")).Status(http.StatusNotFound)
}
