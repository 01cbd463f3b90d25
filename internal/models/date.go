package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on every boundary
const DateLayout = "2006-01-02"

// Date is a calendar date with no time component. The wrapped time is
// always midnight UTC so date arithmetic never crosses a DST boundary.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar date in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// NewDate builds a Date from its parts
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date such as 2025-06-20
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for fixtures
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// AddDays returns the date n days later (n may be negative)
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the whole number of days from d to other
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether both dates are the same day
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// EndOfMonth returns the last calendar day of d's month
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 1).AddDays(-1)
}

// String returns the ISO form
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON renders "YYYY-MM-DD", or null for the zero date
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Format(DateLayout))), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" and, for lenient clients, a full
// RFC 3339 timestamp whose date part is kept.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid date %s: %w", string(data), err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(DateLayout) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", s, err)
		}
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE columns
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v)
	case []byte:
		parsed, err := ParseDate(string(v[:min(len(v), len(DateLayout))]))
		if err != nil {
			return err
		}
		*d = parsed
	case string:
		parsed, err := ParseDate(v[:min(len(v), len(DateLayout))])
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}
