package recurrence

import (
	"testing"

	"moneyclip/internal/models"
)

func d(s string) models.Date {
	return models.MustParseDate(s)
}

func formatDates(dates []models.Date) []string {
	out := make([]string, len(dates))
	for i, dt := range dates {
		out[i] = dt.String()
	}
	return out
}

func assertDates(t *testing.T, got []models.Date, want ...string) {
	t.Helper()
	gotStr := formatDates(got)
	if len(gotStr) != len(want) {
		t.Fatalf("got %d dates %v, want %d %v", len(gotStr), gotStr, len(want), want)
	}
	for i := range want {
		if gotStr[i] != want[i] {
			t.Errorf("date[%d] = %s, want %s (all: %v)", i, gotStr[i], want[i], gotStr)
		}
	}
}

func TestExpandSteps(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		freq   models.Frequency
		start  string
		end    string
		want   []string
	}{
		{"weekly", "2025-06-02", models.Weekly, "2025-06-01", "2025-06-30",
			[]string{"2025-06-02", "2025-06-09", "2025-06-16", "2025-06-23", "2025-06-30"}},
		{"bi-weekly", "2025-06-06", models.BiWeekly, "2025-06-01", "2025-07-15",
			[]string{"2025-06-06", "2025-06-20", "2025-07-04"}},
		{"semi-monthly is fifteen days", "2025-01-01", models.SemiMonthly, "2025-01-01", "2025-02-28",
			[]string{"2025-01-01", "2025-01-16", "2025-01-31", "2025-02-15"}},
		{"monthly rolls over december", "2025-11-15", models.Monthly, "2025-11-01", "2026-02-15",
			[]string{"2025-11-15", "2025-12-15", "2026-01-15", "2026-02-15"}},
		{"quarterly rolls over year", "2025-10-10", models.Quarterly, "2025-01-01", "2026-12-31",
			[]string{"2025-10-10", "2026-01-10", "2026-04-10", "2026-07-10", "2026-10-10"}},
		{"yearly", "2024-03-01", models.Yearly, "2024-01-01", "2027-03-01",
			[]string{"2024-03-01", "2025-03-01", "2026-03-01", "2027-03-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dates(d(tt.anchor), tt.freq, d(tt.start), d(tt.end))
			assertDates(t, got, tt.want...)
		})
	}
}

func TestExpandClampsShortMonths(t *testing.T) {
	got := Dates(d("2025-01-31"), models.Monthly, d("2025-01-01"), d("2025-05-31"))
	assertDates(t, got, "2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31")

	leap := Dates(d("2024-02-29"), models.Yearly, d("2024-01-01"), d("2028-12-31"))
	assertDates(t, leap, "2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29")
}

func TestExpandSkipsOccurrencesBeforeWindow(t *testing.T) {
	// Anchor well in the past: only occurrences from the window start count
	got := Dates(d("2025-01-03"), models.Weekly, d("2025-06-20"), d("2025-07-05"))
	assertDates(t, got, "2025-06-20", "2025-06-27", "2025-07-04")

	got = Dates(d("2025-06-01"), models.Monthly, d("2025-06-20"), d("2025-06-30"))
	if len(got) != 0 {
		t.Errorf("expected no occurrence between the 20th and month end, got %v", formatDates(got))
	}
}

func TestExpandAnchorAfterWindow(t *testing.T) {
	got := Dates(d("2025-08-01"), models.Weekly, d("2025-06-01"), d("2025-07-31"))
	if len(got) != 0 {
		t.Errorf("expected empty sequence, got %v", formatDates(got))
	}
}

func TestExpandUnknownFrequency(t *testing.T) {
	t.Run("anchor inside window counts once", func(t *testing.T) {
		got := Dates(d("2025-06-10"), models.Frequency("fortnightly-ish"), d("2025-06-01"), d("2025-12-31"))
		assertDates(t, got, "2025-06-10")
	})

	t.Run("anchor before window yields nothing", func(t *testing.T) {
		got := Dates(d("2025-05-10"), models.Frequency("daily"), d("2025-06-01"), d("2025-12-31"))
		if len(got) != 0 {
			t.Errorf("expected empty sequence, got %v", formatDates(got))
		}
	})
}

func TestExpandIsMonotonicAndInsideWindow(t *testing.T) {
	anchors := []string{"2023-01-31", "2024-02-29", "2025-06-15", "2025-12-31"}
	start, end := d("2025-01-01"), d("2026-12-31")

	for _, freq := range models.Frequencies {
		for _, a := range anchors {
			var prev models.Date
			count := 0
			for occ := range Expand(d(a), freq, start, end) {
				if occ.Before(start) || occ.After(end) {
					t.Errorf("%s from %s: %s outside window", freq, a, occ)
				}
				if count > 0 && !occ.After(prev) {
					t.Errorf("%s from %s: %s not after %s", freq, a, occ, prev)
				}
				prev = occ
				count++
			}
			if count == 0 {
				t.Errorf("%s from %s: expected occurrences in a two-year window", freq, a)
			}
		}
	}
}

func TestExpandRestartsFromAnchor(t *testing.T) {
	seq := Expand(d("2025-06-01"), models.Weekly, d("2025-06-01"), d("2025-06-30"))

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 5 || second != 5 {
		t.Errorf("ranging twice gave %d and %d occurrences, want 5 and 5", first, second)
	}
}

func TestExpandStopsEarly(t *testing.T) {
	count := 0
	for range Expand(d("2025-01-01"), models.Weekly, d("2025-01-01"), d("2030-01-01")) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("expected to consume 3 occurrences, got %d", count)
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		anchor string
		freq   models.Frequency
		after  string
		want   string
	}{
		{"2025-06-06", models.BiWeekly, "2025-06-06", "2025-06-20"},
		{"2025-06-06", models.BiWeekly, "2025-07-01", "2025-07-04"},
		{"2025-01-31", models.Monthly, "2025-02-01", "2025-02-28"},
		{"2025-07-01", models.Monthly, "2025-06-01", "2025-07-01"},
	}
	for _, tt := range tests {
		got, ok := Next(d(tt.anchor), tt.freq, d(tt.after))
		if !ok {
			t.Fatalf("Next(%s, %s, %s) reported unknown frequency", tt.anchor, tt.freq, tt.after)
		}
		if got.String() != tt.want {
			t.Errorf("Next(%s, %s, %s) = %s, want %s", tt.anchor, tt.freq, tt.after, got, tt.want)
		}
	}

	if _, ok := Next(d("2025-01-01"), models.Frequency("hourly"), d("2025-01-01")); ok {
		t.Error("expected unknown frequency to report false")
	}
}
