package models

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of fractional digits every surfaced figure carries
const CurrencyPlaces = 2

// Money is a currency amount. It renders as a bare JSON number with exactly
// two fractional digits so clients never see float artefacts.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal rounded to currency precision
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: RoundCurrency(d)}
}

// MoneyFromString parses a decimal string, panicking on bad input.
// Intended for fixtures and constants.
func MoneyFromString(s string) Money {
	return NewMoney(decimal.RequireFromString(s))
}

// MoneyFromFloat converts a float amount (e.g. legacy JSON) to Money
func MoneyFromFloat(f float64) Money {
	return NewMoney(decimal.NewFromFloat(f))
}

// RoundCurrency rounds half away from zero to two places
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// MarshalJSON renders the amount as a number such as 120.00
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(CurrencyPlaces)), nil
}

// UnmarshalJSON accepts 12.5, "12.50" and null. Amounts are rounded to
// currency precision on the way in.
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(data), err)
	}
	m.Decimal = RoundCurrency(d)
	return nil
}

// String returns the fixed two-place representation
func (m Money) String() string {
	return m.StringFixed(CurrencyPlaces)
}

// IsPositive reports whether the amount is strictly greater than zero
func (m Money) IsPositive() bool {
	return m.Decimal.IsPositive()
}
