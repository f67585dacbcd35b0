// Package amortization holds the fixed-rate amortization and repayment
// allocation engine. Every function is pure: inputs are never mutated and
// no I/O is performed.
package amortization

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/money"
)

// MonthlyRate converts an annual nominal percentage into the per-month rate
// used by every schedule computation.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return money.MonthlyRate(annualRatePercent)
}

// CalculateEMI returns the equated monthly installment for principal repaid
// over n months at monthlyRate, rounded half-up to cents. A zero rate spreads
// the principal evenly.
func CalculateEMI(principal, monthlyRate decimal.Decimal, n int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, customError.WrapValidation("principal must be greater than 0, got %s", principal)
	}
	if n < 1 {
		return decimal.Zero, customError.WrapValidation("number of installments must be at least 1, got %d", n)
	}
	if monthlyRate.IsNegative() {
		return decimal.Zero, customError.WrapValidation("monthly rate must not be negative, got %s", monthlyRate)
	}

	months := decimal.NewFromInt(int64(n))
	if monthlyRate.IsZero() {
		return money.DivRound(principal, months), nil
	}

	// (1+r)^n, exact
	onePlusR := decimal.NewFromInt(1).Add(monthlyRate)
	factor := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		factor = factor.Mul(onePlusR)
	}

	numerator := principal.Mul(monthlyRate).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	return money.DivRound(numerator, denominator), nil
}

// ComputeSchedule builds the full amortization schedule of a new loan. Row i
// is due i calendar months after startDate.
func ComputeSchedule(principal, annualRatePercent decimal.Decimal, termMonths int, startDate time.Time) (decimal.Decimal, domain.Schedule, error) {
	if !principal.IsPositive() {
		return decimal.Zero, nil, customError.WrapValidation("principal must be greater than 0, got %s", principal)
	}
	if termMonths < 1 {
		return decimal.Zero, nil, customError.WrapValidation("term must be at least 1 month, got %d", termMonths)
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, nil, customError.WrapValidation("annual rate must not be negative, got %s", annualRatePercent)
	}

	rate := MonthlyRate(annualRatePercent)
	emi, err := CalculateEMI(principal, rate, termMonths)
	if err != nil {
		return decimal.Zero, nil, err
	}

	start := money.DateOnly(startDate)
	rows := make(domain.Schedule, 0, termMonths)
	for i := 1; i <= termMonths; i++ {
		rows = append(rows, &domain.EmiScheduleEntry{
			ID:                uuid.New(),
			InstallmentNumber: i,
			DueDate:           money.AddMonths(start, i),
			AmountPaid:        decimal.Zero,
			Status:            domain.ScheduleStatusPending,
		})
	}

	if err := amortize(rows, principal, rate, emi); err != nil {
		return decimal.Zero, nil, err
	}

	return emi, rows, nil
}

// amortize writes the emi, interest, principal and remaining balance of rows
// so that their principal components sum to balance. The last row absorbs
// the rounding residue.
func amortize(rows domain.Schedule, balance, rate, emi decimal.Decimal) error {
	remaining := balance
	last := len(rows) - 1

	for i, row := range rows {
		interest := money.Round(remaining.Mul(rate))
		principal := emi.Sub(interest)
		rowEmi := emi

		// once the balance is exhausted the trailing rows carry nothing
		if principal.GreaterThan(remaining) {
			principal = remaining
			rowEmi = principal.Add(interest)
		}
		if i == last {
			principal = remaining
			rowEmi = principal.Add(interest)
		}

		if principal.IsNegative() {
			return customError.WrapInvariantViolation("installment %d: principal component %s is negative",
				row.InstallmentNumber, principal)
		}

		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			return customError.WrapInvariantViolation("installment %d: remaining principal %s is negative",
				row.InstallmentNumber, remaining)
		}

		row.EmiAmount = rowEmi
		row.InterestComponent = interest
		row.PrincipalComponent = principal
		row.RemainingPrincipalAfter = remaining
	}

	return nil
}
