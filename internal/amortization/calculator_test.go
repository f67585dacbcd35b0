package amortization

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, d(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

var loanStart = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

func TestCalculateEMI(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		annual    string
		months    int
		expected  string
	}{
		{name: "ten percent over a year", principal: "120000", annual: "10", months: 12, expected: "10549.91"},
		{name: "twelve percent over two years", principal: "100000", annual: "12", months: 24, expected: "4707.35"},
		{name: "zero rate spreads evenly", principal: "1000", annual: "0", months: 3, expected: "333.33"},
		{name: "single installment zero rate", principal: "500", annual: "0", months: 1, expected: "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emi, err := CalculateEMI(d(tt.principal), MonthlyRate(d(tt.annual)), tt.months)

			require.NoError(t, err)
			assertDecimal(t, tt.expected, emi)
		})
	}
}

func TestCalculateEMI_InvalidInput(t *testing.T) {
	_, err := CalculateEMI(decimal.Zero, d("0.01"), 12)
	assert.True(t, errors.Is(err, customError.ErrValidation))

	_, err = CalculateEMI(d("1000"), d("0.01"), 0)
	assert.True(t, errors.Is(err, customError.ErrValidation))

	_, err = CalculateEMI(d("1000"), d("-0.01"), 12)
	assert.True(t, errors.Is(err, customError.ErrValidation))
}

func TestComputeSchedule(t *testing.T) {
	emi, rows, err := ComputeSchedule(d("120000"), d("10"), 12, loanStart)

	require.NoError(t, err)
	require.Len(t, rows, 12)
	assertDecimal(t, "10549.91", emi)

	first := rows[0]
	assert.Equal(t, 1, first.InstallmentNumber)
	assertDecimal(t, "10549.91", first.EmiAmount)
	assertDecimal(t, "1000.00", first.InterestComponent)
	assertDecimal(t, "9549.91", first.PrincipalComponent)
	assertDecimal(t, "110450.09", first.RemainingPrincipalAfter)
	assert.Equal(t, domain.ScheduleStatusPending, first.Status)
	assert.True(t, first.AmountPaid.IsZero())

	second := rows[1]
	assertDecimal(t, "920.42", second.InterestComponent)
	assertDecimal(t, "9629.49", second.PrincipalComponent)
	assertDecimal(t, "100820.60", second.RemainingPrincipalAfter)

	last := rows[11]
	assertDecimal(t, "10549.88", last.EmiAmount)
	assertDecimal(t, "87.19", last.InterestComponent)
	assertDecimal(t, "10462.69", last.PrincipalComponent)
	assert.True(t, last.RemainingPrincipalAfter.IsZero())

	totalPrincipal := decimal.Zero
	for i, row := range rows {
		assert.Equal(t, i+1, row.InstallmentNumber)
		assert.True(t, row.PrincipalComponent.Add(row.InterestComponent).Equal(row.EmiAmount),
			"installment %d does not add up", row.InstallmentNumber)
		assert.NotEqual(t, row.ID.String(), "00000000-0000-0000-0000-000000000000")
		totalPrincipal = totalPrincipal.Add(row.PrincipalComponent)
	}
	assertDecimal(t, "120000", totalPrincipal)
}

func TestComputeSchedule_DueDates(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		expected []time.Time
	}{
		{
			name:  "mid month",
			start: loanStart,
			expected: []time.Time{
				time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC),
				time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
				time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:  "month end clamps without drifting",
			start: time.Date(2025, time.January, 31, 13, 45, 0, 0, time.UTC),
			expected: []time.Time{
				time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rows, err := ComputeSchedule(d("3000"), d("10"), len(tt.expected), tt.start)

			require.NoError(t, err)
			for i, row := range rows {
				assert.True(t, tt.expected[i].Equal(row.DueDate), "installment %d: expected %s, got %s",
					row.InstallmentNumber, tt.expected[i], row.DueDate)
			}
		})
	}
}

func TestComputeSchedule_ZeroRate(t *testing.T) {
	emi, rows, err := ComputeSchedule(d("1000"), decimal.Zero, 3, loanStart)

	require.NoError(t, err)
	assertDecimal(t, "333.33", emi)
	assertDecimal(t, "333.33", rows[0].PrincipalComponent)
	assertDecimal(t, "333.33", rows[1].PrincipalComponent)
	assertDecimal(t, "333.34", rows[2].PrincipalComponent)
	assertDecimal(t, "333.34", rows[2].EmiAmount)
	for _, row := range rows {
		assert.True(t, row.InterestComponent.IsZero())
	}
}

func TestComputeSchedule_TinyBalanceNeverGoesNegative(t *testing.T) {
	_, rows, err := ComputeSchedule(d("0.05"), decimal.Zero, 10, loanStart)

	require.NoError(t, err)
	assert.True(t, rows.UnpaidPrincipal().Equal(d("0.05")))
	for _, row := range rows {
		assert.False(t, row.RemainingPrincipalAfter.IsNegative())
		assert.False(t, row.PrincipalComponent.IsNegative())
	}
	assert.True(t, rows[9].RemainingPrincipalAfter.IsZero())
}

func TestComputeSchedule_PrincipalFullyAmortized(t *testing.T) {
	principals := []string{"0.05", "1000", "120000", "999999.99"}
	rates := []string{"0.5", "10", "24", "36"}
	terms := []int{1, 2, 60, 360}

	for _, principal := range principals {
		for _, rate := range rates {
			for _, term := range terms {
				name := principal + " at " + rate + "% over " + strconv.Itoa(term)
				t.Run(name, func(t *testing.T) {
					_, rows, err := ComputeSchedule(d(principal), d(rate), term, loanStart)

					require.NoError(t, err)
					require.Len(t, rows, term)
					assert.True(t, rows.IsOrdered())
					assert.True(t, rows[term-1].RemainingPrincipalAfter.IsZero(),
						"last row leaves %s", rows[term-1].RemainingPrincipalAfter)

					sum := decimal.Zero
					for _, row := range rows {
						assert.False(t, row.PrincipalComponent.IsNegative())
						assert.False(t, row.InterestComponent.IsNegative())
						assert.True(t, row.EmiAmount.Equal(row.PrincipalComponent.Add(row.InterestComponent)))
						sum = sum.Add(row.PrincipalComponent)
					}
					assertDecimal(t, principal, sum)
				})
			}
		}
	}
}

func TestComputeSchedule_Deterministic(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		annual    string
		months    int
	}{
		{name: "standard loan", principal: "120000", annual: "10", months: 12},
		{name: "long high rate", principal: "999999.99", annual: "36", months: 360},
		{name: "zero rate", principal: "1000", annual: "0", months: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emi1, first, err := ComputeSchedule(d(tt.principal), d(tt.annual), tt.months, loanStart)
			require.NoError(t, err)
			emi2, second, err := ComputeSchedule(d(tt.principal), d(tt.annual), tt.months, loanStart)
			require.NoError(t, err)

			assert.True(t, emi1.Equal(emi2))
			require.Len(t, second, len(first))
			for i := range first {
				a, b := first[i], second[i]
				assert.Equal(t, a.InstallmentNumber, b.InstallmentNumber)
				assert.True(t, a.DueDate.Equal(b.DueDate), "row %d due date", a.InstallmentNumber)
				assert.True(t, a.EmiAmount.Equal(b.EmiAmount), "row %d emi", a.InstallmentNumber)
				assert.True(t, a.InterestComponent.Equal(b.InterestComponent), "row %d interest", a.InstallmentNumber)
				assert.True(t, a.PrincipalComponent.Equal(b.PrincipalComponent), "row %d principal", a.InstallmentNumber)
				assert.True(t, a.RemainingPrincipalAfter.Equal(b.RemainingPrincipalAfter), "row %d remaining", a.InstallmentNumber)
				assert.True(t, a.AmountPaid.Equal(b.AmountPaid))
				assert.Equal(t, a.Status, b.Status)
				assert.NotEqual(t, a.ID, b.ID)
			}
		})
	}
}

func TestComputeSchedule_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		annual    string
		months    int
	}{
		{name: "zero principal", principal: "0", annual: "10", months: 12},
		{name: "negative principal", principal: "-100", annual: "10", months: 12},
		{name: "zero term", principal: "1000", annual: "10", months: 0},
		{name: "negative rate", principal: "1000", annual: "-1", months: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rows, err := ComputeSchedule(d(tt.principal), d(tt.annual), tt.months, loanStart)

			assert.Error(t, err)
			assert.True(t, errors.Is(err, customError.ErrValidation))
			assert.Nil(t, rows)
		})
	}
}
