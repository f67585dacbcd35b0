package money

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "half rounds up", input: "10.005", expected: "10.01"},
		{name: "below half rounds down", input: "10.0049", expected: "10"},
		{name: "already at scale", input: "999.99", expected: "999.99"},
		{name: "near whole", input: "999.999996", expected: "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(decimal.RequireFromString(tt.input))
			assert.True(t, result.Equal(decimal.RequireFromString(tt.expected)),
				"Expected %s, but got %s", tt.expected, result)
		})
	}
}

func TestMonthlyRate(t *testing.T) {
	tests := []struct {
		name     string
		annual   string
		expected string
	}{
		{name: "ten percent", annual: "10", expected: "0.0083333333"},
		{name: "twelve percent", annual: "12", expected: "0.01"},
		{name: "zero", annual: "0", expected: "0"},
		{name: "fractional rate", annual: "7.5", expected: "0.00625"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MonthlyRate(decimal.RequireFromString(tt.annual))
			assert.True(t, result.Equal(decimal.RequireFromString(tt.expected)),
				"Expected %s, but got %s", tt.expected, result)
		})
	}
}

func TestFloorZero(t *testing.T) {
	assert.True(t, FloorZero(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, FloorZero(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}

func TestSum(t *testing.T) {
	total := Sum(decimal.RequireFromString("0.10"), decimal.RequireFromString("0.20"), decimal.RequireFromString("0.30"))
	assert.True(t, total.Equal(decimal.RequireFromString("0.60")))
	assert.True(t, Sum().IsZero())
}

func TestIsCurrencyAmount(t *testing.T) {
	assert.True(t, IsCurrencyAmount(decimal.RequireFromString("12.34")))
	assert.False(t, IsCurrencyAmount(decimal.RequireFromString("12.345")))
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		expected time.Time
	}{
		{
			name:     "mid month",
			start:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of month clamps in leap year",
			start:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of month does not drift",
			start:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   2,
			expected: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "year rollover",
			start:    time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC),
			months:   3,
			expected: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonths(tt.start, tt.months))
		})
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, 5, 6, 13, 45, 10, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), DateOnly(in))
}

func TestFromString(t *testing.T) {
	d, err := FromString("120000.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("120000.50")))

	_, err = FromString("abc")
	assert.Error(t, err)
}
