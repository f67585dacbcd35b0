package money

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CurrencyScale is the number of fractional digits kept on every amount.
	CurrencyScale int32 = 2

	// RateScale is the number of fractional digits kept on a periodic rate
	// before it is used in any multiplication.
	RateScale int32 = 10
)

var (
	monthsPerYearPercent = decimal.NewFromInt(12 * 100)
	Cent                 = decimal.New(1, -CurrencyScale)
)

// Round rounds an amount to the currency scale using round-half-up.
// For the non-negative amounts the engine works with this is the same as
// decimal's half-away-from-zero rounding.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

// DivRound divides and rounds the quotient to the currency scale.
func DivRound(numerator, denominator decimal.Decimal) decimal.Decimal {
	return numerator.DivRound(denominator, CurrencyScale)
}

// MonthlyRate converts an annual nominal rate in percent into a monthly
// fraction: annual / (12 * 100), rounded half-up to RateScale digits.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(monthsPerYearPercent, RateScale)
}

// FloorZero returns d, or zero when d is negative.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Sum adds up the given amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// IsCurrencyAmount reports whether d carries no more than CurrencyScale fractional digits.
func IsCurrencyAmount(d decimal.Decimal) bool {
	return d.Equal(Round(d))
}

// AddMonths moves t forward by the given number of calendar months. When the
// target month is shorter than t's day of month the result is clamped to the
// last day of that month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FromString parses a decimal amount.
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}
