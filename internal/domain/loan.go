package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// LoanStatus is the lifecycle state of a disbursed loan.
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "ACTIVE"
	LoanStatusClosed LoanStatus = "CLOSED"
)

func (s LoanStatus) Valid() bool {
	return s == LoanStatusActive || s == LoanStatusClosed
}

// Loan represents a disbursed installment loan. Everything except
// RemainingPrincipal and Status is fixed at creation.
type Loan struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	ApplicationID      uuid.UUID       `json:"application_id" db:"application_id"`
	AccountID          string          `json:"account_id" db:"account_id"`
	BorrowerEmail      string          `json:"borrower_email,omitempty" db:"borrower_email"`
	Principal          decimal.Decimal `json:"principal" db:"principal"`
	AnnualRatePercent  decimal.Decimal `json:"annual_rate_percent" db:"annual_rate_percent"`
	TermMonths         int             `json:"term_months" db:"term_months"`
	EmiAmount          decimal.Decimal `json:"emi_amount" db:"emi_amount"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal" db:"remaining_principal"`
	Status             LoanStatus      `json:"status" db:"status"`
	OriginationDate    time.Time       `json:"origination_date" db:"origination_date"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

func (l *Loan) IsClosed() bool {
	return l.Status == LoanStatusClosed
}

// ReducePrincipal moves RemainingPrincipal down to remaining and closes the
// loan once it reaches zero. Remaining principal never grows and never goes
// negative.
func (l *Loan) ReducePrincipal(remaining decimal.Decimal) error {
	if remaining.IsNegative() {
		return customError.WrapInvariantViolation("loan %s: remaining principal %s is negative", l.ID, remaining)
	}
	if remaining.GreaterThan(l.RemainingPrincipal) {
		return customError.WrapInvariantViolation("loan %s: remaining principal would increase from %s to %s",
			l.ID, l.RemainingPrincipal, remaining)
	}

	l.RemainingPrincipal = remaining
	if remaining.IsZero() {
		l.Status = LoanStatusClosed
	}
	return nil
}

// DTOs for requests and responses

type RepayRequest struct {
	LoanID    uuid.UUID       `json:"-"`
	AccountID string          `json:"account_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"decimal_gt0"`
}

type RepayResponse struct {
	Repayment   *Repayment      `json:"repayment"`
	Loan        *Loan           `json:"loan"`
	Schedule    Schedule        `json:"schedule"`
	Unallocated decimal.Decimal `json:"unallocated"`
}

type LoanResponse struct {
	Loan     *Loan    `json:"loan"`
	Schedule Schedule `json:"schedule,omitempty"`
}

// LoanSummary is a read model of a loan's repayment progress.
type LoanSummary struct {
	LoanID                uuid.UUID        `json:"loan_id"`
	AccountID             string           `json:"account_id"`
	Status                LoanStatus       `json:"status"`
	Principal             decimal.Decimal  `json:"principal"`
	RemainingPrincipal    decimal.Decimal  `json:"remaining_principal"`
	EmiAmount             decimal.Decimal  `json:"emi_amount"`
	TotalPaid             decimal.Decimal  `json:"total_paid"`
	InstallmentsPaid      int              `json:"installments_paid"`
	InstallmentsRemaining int              `json:"installments_remaining"`
	NextDueInstallment    int              `json:"next_due_installment,omitempty"`
	NextDueDate           *time.Time       `json:"next_due_date,omitempty"`
	NextDueAmount         *decimal.Decimal `json:"next_due_amount,omitempty"`
}

// NewLoanSummary builds the summary of loan from its current schedule.
func NewLoanSummary(loan *Loan, schedule Schedule) *LoanSummary {
	summary := &LoanSummary{
		LoanID:             loan.ID,
		AccountID:          loan.AccountID,
		Status:             loan.Status,
		Principal:          loan.Principal,
		RemainingPrincipal: loan.RemainingPrincipal,
		EmiAmount:          loan.EmiAmount,
		TotalPaid:          decimal.Zero,
	}

	for _, entry := range schedule {
		summary.TotalPaid = summary.TotalPaid.Add(entry.AmountPaid)
		if entry.IsPaid() {
			summary.InstallmentsPaid++
			continue
		}
		summary.InstallmentsRemaining++
	}

	if next := schedule.NextDue(); next != nil {
		dueDate := next.DueDate
		dueAmount := next.AmountDue()
		summary.NextDueInstallment = next.InstallmentNumber
		summary.NextDueDate = &dueDate
		summary.NextDueAmount = &dueAmount
	}

	return summary
}
