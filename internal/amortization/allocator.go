package amortization

import (
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/money"
)

// Allocation is the part of a payment credited to one installment.
type Allocation struct {
	InstallmentNumber int             `json:"installment_number"`
	Interest          decimal.Decimal `json:"interest"`
	Principal         decimal.Decimal `json:"principal"`
	Settled           bool            `json:"settled"`
}

type AllocationResult struct {
	Rows                  domain.Schedule
	NewRemainingPrincipal decimal.Decimal
	FullyPaid             bool
	Unallocated           decimal.Decimal
	Allocations           []Allocation
}

// Allocate applies payment to the schedule interest first, then principal,
// walking PENDING installments in order. The loan balance drops by the full
// payment, floored at zero. Any payment left once every installment is
// settled is reported as Unallocated.
func Allocate(payment decimal.Decimal, schedule domain.Schedule, remainingPrincipal decimal.Decimal) (*AllocationResult, error) {
	if !payment.IsPositive() {
		return nil, customError.WrapValidation("payment must be greater than 0, got %s", payment)
	}
	if !schedule.IsOrdered() {
		return nil, customError.WrapValidation("schedule installments are not in ascending order")
	}

	rows := schedule.Clone()
	result := &AllocationResult{
		Rows:                  rows,
		NewRemainingPrincipal: money.FloorZero(remainingPrincipal.Sub(payment)),
	}

	left := payment
	for _, row := range rows {
		if !left.IsPositive() {
			break
		}
		if row.IsPaid() {
			continue
		}

		due := row.AmountDue()
		if left.GreaterThanOrEqual(due) {
			result.Allocations = append(result.Allocations, Allocation{
				InstallmentNumber: row.InstallmentNumber,
				Interest:          row.InterestComponent,
				Principal:         row.PrincipalComponent,
				Settled:           true,
			})
			row.AmountPaid = row.AmountPaid.Add(due)
			row.MarkPaid()
			left = left.Sub(due)
			continue
		}

		alloc := Allocation{InstallmentNumber: row.InstallmentNumber}
		if left.GreaterThanOrEqual(row.InterestComponent) {
			toPrincipal := left.Sub(row.InterestComponent)
			alloc.Interest = row.InterestComponent
			alloc.Principal = toPrincipal
			row.InterestComponent = decimal.Zero
			row.PrincipalComponent = row.PrincipalComponent.Sub(toPrincipal)
			row.RemainingPrincipalAfter = money.FloorZero(row.RemainingPrincipalAfter.Sub(toPrincipal))
		} else {
			alloc.Interest = left
			alloc.Principal = decimal.Zero
			row.InterestComponent = row.InterestComponent.Sub(left)
		}
		row.AmountPaid = row.AmountPaid.Add(left)
		result.Allocations = append(result.Allocations, alloc)
		left = decimal.Zero
	}

	result.Unallocated = left
	result.FullyPaid = result.NewRemainingPrincipal.IsZero()
	return result, nil
}
