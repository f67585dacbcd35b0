package amortization

import (
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// Reamortize spreads outstanding over the unpaid installments at the loan's
// rate and returns a schedule whose unpaid suffix is replaced with the new
// rows. Paid installments are carried over untouched.
func Reamortize(outstanding decimal.Decimal, schedule domain.Schedule, annualRatePercent decimal.Decimal) (domain.Schedule, error) {
	if !outstanding.IsPositive() {
		return nil, customError.WrapValidation("outstanding principal must be greater than 0, got %s", outstanding)
	}

	suffix := schedule.UnpaidSuffix()
	if len(suffix) == 0 {
		return nil, customError.WrapInvariantViolation("outstanding principal %s but no unpaid installments", outstanding)
	}
	for _, row := range suffix {
		if row.IsPaid() {
			return nil, customError.WrapInvariantViolation("paid installment %d follows an unpaid installment",
				row.InstallmentNumber)
		}
	}

	rate := MonthlyRate(annualRatePercent)
	emi, err := CalculateEMI(outstanding, rate, len(suffix))
	if err != nil {
		return nil, err
	}

	rows := suffix.Clone()
	if err := amortize(rows, outstanding, rate, emi); err != nil {
		return nil, err
	}

	return schedule.Clone().ReplaceFrom(rows[0].InstallmentNumber, rows), nil
}

// CloseOut marks every unpaid installment PAID with zeroed components.
func CloseOut(schedule domain.Schedule) domain.Schedule {
	rows := schedule.Clone()
	for _, row := range rows {
		if !row.IsPaid() {
			row.MarkPaid()
		}
	}
	return rows
}

// Settlement is the outcome of applying one payment to a loan.
type Settlement struct {
	Schedule              domain.Schedule
	NewRemainingPrincipal decimal.Decimal
	FullyPaid             bool
	Reamortized           bool
	Unallocated           decimal.Decimal
	Allocations           []Allocation
}

// Settle allocates payment, then either re-amortizes the remaining balance
// or closes out the schedule. The unpaid principal of the returned schedule
// always equals the new remaining principal.
func Settle(payment decimal.Decimal, schedule domain.Schedule, remainingPrincipal, annualRatePercent decimal.Decimal) (*Settlement, error) {
	allocation, err := Allocate(payment, schedule, remainingPrincipal)
	if err != nil {
		return nil, err
	}

	settlement := &Settlement{
		NewRemainingPrincipal: allocation.NewRemainingPrincipal,
		FullyPaid:             allocation.FullyPaid,
		Unallocated:           allocation.Unallocated,
		Allocations:           allocation.Allocations,
	}

	if allocation.FullyPaid {
		settlement.Schedule = CloseOut(allocation.Rows)
	} else {
		settlement.Schedule, err = Reamortize(allocation.NewRemainingPrincipal, allocation.Rows, annualRatePercent)
		if err != nil {
			return nil, err
		}
		settlement.Reamortized = true
	}

	if unpaid := settlement.Schedule.UnpaidPrincipal(); !unpaid.Equal(settlement.NewRemainingPrincipal) {
		return nil, customError.WrapInvariantViolation("unpaid principal %s does not match remaining principal %s",
			unpaid, settlement.NewRemainingPrincipal)
	}

	return settlement, nil
}
