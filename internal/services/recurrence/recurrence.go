// Package recurrence expands recurring schedules into concrete dates.
package recurrence

import (
	"iter"
	"time"

	"moneyclip/internal/models"
)

// step describes how far one occurrence is from the next
type step struct {
	days   int
	months int
}

// steps maps each frequency to its increment. Every entry is non-zero, which
// is what guarantees expansion terminates.
var steps = map[models.Frequency]step{
	models.Weekly:      {days: 7},
	models.BiWeekly:    {days: 14},
	models.SemiMonthly: {days: 15}, // approximation, not calendar aware
	models.Monthly:     {months: 1},
	models.Quarterly:   {months: 3},
	models.Yearly:      {months: 12},
}

// Supported reports whether freq has a defined step
func Supported(freq models.Frequency) bool {
	_, ok := steps[freq]
	return ok
}

// Expand yields every occurrence of a schedule anchored at anchor that falls
// inside [windowStart, windowEnd], in ascending order. The sequence walks from
// the anchor each time it is ranged over.
//
// An unknown frequency yields the anchor alone (if it is inside the window)
// and stops, so a bad record counts once instead of looping.
func Expand(anchor models.Date, freq models.Frequency, windowStart, windowEnd models.Date) iter.Seq[models.Date] {
	return func(yield func(models.Date) bool) {
		if anchor.After(windowEnd) {
			return
		}

		st, ok := steps[freq]
		if !ok {
			if !anchor.Before(windowStart) {
				yield(anchor)
			}
			return
		}

		for n := firstCandidate(anchor, st, windowStart); ; n++ {
			d := occurrence(anchor, st, n)
			if d.After(windowEnd) {
				return
			}
			if d.Before(windowStart) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// Dates collects Expand into a slice
func Dates(anchor models.Date, freq models.Frequency, windowStart, windowEnd models.Date) []models.Date {
	var dates []models.Date
	for d := range Expand(anchor, freq, windowStart, windowEnd) {
		dates = append(dates, d)
	}
	return dates
}

// Next returns the first occurrence strictly after d, or false when freq is
// unknown.
func Next(anchor models.Date, freq models.Frequency, d models.Date) (models.Date, bool) {
	st, ok := steps[freq]
	if !ok {
		return models.Date{}, false
	}
	for n := firstCandidate(anchor, st, d); ; n++ {
		if next := occurrence(anchor, st, n); next.After(d) {
			return next, true
		}
	}
}

// occurrence returns the n-th date of the schedule (n = 0 is the anchor).
// Month-based steps are measured from the anchor and clamp to the last day
// of shorter months, so an anchor on the 31st gives Jan 31, Feb 28, Mar 31.
func occurrence(anchor models.Date, st step, n int) models.Date {
	if st.days > 0 {
		return anchor.AddDays(n * st.days)
	}
	return addMonthsClamped(anchor, n*st.months)
}

// firstCandidate skips whole steps that certainly end before windowStart
func firstCandidate(anchor models.Date, st step, windowStart models.Date) int {
	if !windowStart.After(anchor) {
		return 0
	}
	if st.days > 0 {
		return anchor.DaysUntil(windowStart) / st.days
	}
	months := (windowStart.Year()-anchor.Year())*12 + int(windowStart.Month()-anchor.Month())
	if n := months/st.months - 1; n > 0 {
		return n
	}
	return 0
}

func addMonthsClamped(d models.Date, months int) models.Date {
	total := int(d.Month()) - 1 + months
	year := d.Year() + total/12
	month := time.Month(total%12 + 1)

	day := d.Day()
	// day 0 of the following month is the last day of this one
	if last := models.NewDate(year, month+1, 0).Day(); day > last {
		day = last
	}
	return models.NewDate(year, month, day)
}
